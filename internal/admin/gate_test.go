package admin

import (
	"errors"
	"testing"

	"storefront/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttempt_Match(t *testing.T) {
	t.Parallel()
	g := NewGate("s3cret")
	g.SetPending("s3cret")

	require.NoError(t, g.Attempt("s3cret"))
	assert.True(t, g.IsAdmin())
	assert.Empty(t, g.Pending())
}

func TestAttempt_Mismatch(t *testing.T) {
	t.Parallel()
	g := NewGate("s3cret")
	g.SetPending("guess")

	err := g.Attempt("guess")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAuthRejected))
	assert.Equal(t, errs.ErrMsgAuthRejected, errs.Message(err))
	assert.False(t, g.IsAdmin())
	assert.Equal(t, "guess", g.Pending())
}

func TestAttempt_MismatchKeepsExistingFlag(t *testing.T) {
	t.Parallel()
	g := NewGate("s3cret")
	require.NoError(t, g.Attempt("s3cret"))

	require.Error(t, g.Attempt("wrong"))
	assert.True(t, g.IsAdmin())
}

func TestAttempt_EmptySecretRejectsEverything(t *testing.T) {
	t.Parallel()
	g := NewGate("")
	require.Error(t, g.Attempt(""))
	require.Error(t, g.Attempt("anything"))
	assert.False(t, g.IsAdmin())
}

func TestAttempt_IsCaseSensitive(t *testing.T) {
	t.Parallel()
	g := NewGate("Secret")
	require.Error(t, g.Attempt("secret"))
	require.Error(t, g.Attempt("Secret "))
	assert.False(t, g.IsAdmin())
}

func TestRevoke(t *testing.T) {
	t.Parallel()
	g := NewGate("s3cret")
	require.NoError(t, g.Attempt("s3cret"))
	g.Revoke()
	assert.False(t, g.IsAdmin())
}
