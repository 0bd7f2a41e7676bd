package cart

import (
	"errors"
	"math"
	"testing"

	"storefront/internal/errs"
	"storefront/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jersey = model.Product{ID: "1", Name: "Jersey", Price: 25, ImageURL: "https://img.example/j.png", Available: true}
	shorts = model.Product{ID: "2", Name: "Shorts", Price: 10, Available: true}
)

func TestEmptyCart(t *testing.T) {
	t.Parallel()
	c := New()
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, int64(0), c.Total())
	assert.Empty(t, c.Entries())
}

func TestAdd_KeepsDuplicatesInOrder(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(jersey)
	c.Add(shorts)
	c.Add(jersey)

	require.Equal(t, 3, c.Count())
	assert.Equal(t, int64(60), c.Total())

	entries := c.Entries()
	assert.Equal(t, []string{"Jersey", "Shorts", "Jersey"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
	assert.Equal(t, Entry{ProductID: "1", Name: "Jersey", Price: 25, ImageURL: "https://img.example/j.png"}, entries[0])
}

func TestRemoveAt_ShiftsLaterEntries(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(jersey)
	c.Add(shorts)
	c.Add(jersey)

	require.NoError(t, c.RemoveAt(1))
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, int64(50), c.Total())
	for _, e := range c.Entries() {
		assert.Equal(t, "Jersey", e.Name)
	}
}

func TestRemoveAt_OutOfRangeLeavesCartUntouched(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(jersey)
	before := c.Entries()

	for _, idx := range []int{-1, 1, 5} {
		err := c.RemoveAt(idx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrIndexOutOfRange))
		assert.Equal(t, errs.KindIndexOutOfRange, errs.KindOf(err))
	}
	assert.Equal(t, before, c.Entries())
}

func TestRemoveAt_LastEntryEmptiesCart(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(shorts)

	require.NoError(t, c.RemoveAt(0))
	assert.Equal(t, 0, c.Count())
	assert.Equal(t, int64(0), c.Total())
}

func TestEntries_ReturnsCopy(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(jersey)

	entries := c.Entries()
	entries[0].Name = "changed"
	assert.Equal(t, "Jersey", c.Entries()[0].Name)
}

func TestClear(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(jersey)
	c.Add(shorts)
	c.Clear()
	assert.Equal(t, 0, c.Count())
}

func TestFits_GuardsTotalOverflow(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(model.Product{Name: "a", Price: math.MaxInt64 - 10})

	assert.True(t, c.Fits(10))
	assert.False(t, c.Fits(11))
	assert.False(t, c.Fits(math.MaxInt64))

	c.Add(model.Product{Name: "b", Price: 10})
	assert.Equal(t, int64(math.MaxInt64), c.Total())
	assert.True(t, c.Fits(0))
}

func TestTotal_LargeValuesAreExact(t *testing.T) {
	t.Parallel()
	c := New()
	c.Add(model.Product{Name: "a", Price: 1 << 53})
	c.Add(model.Product{Name: "b", Price: 1})
	assert.Equal(t, int64(1<<53+1), c.Total())
}
