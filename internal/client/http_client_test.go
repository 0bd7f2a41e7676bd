package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_GetSendsHeadersAndQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", time.Second)
	c.SetDefaultHeaders(map[string]string{"apikey": "k"})

	var rows []map[string]any
	err := c.Get("/rest/v1/products", &rows, RequestOptions{
		Context:     context.Background(),
		QueryParams: map[string]string{"order": "id.desc"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NotNil(t, got)
	assert.Equal(t, "/rest/v1/products", got.URL.Path)
	assert.Equal(t, "id.desc", got.URL.Query().Get("order"))
	assert.Equal(t, "k", got.Header.Get("apikey"))
	assert.NotEmpty(t, got.Header.Get("X-Trace-ID"))
}

func TestHTTPClient_PostEncodesJSON(t *testing.T) {
	var body map[string]any
	var contentType, prefer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		prefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	err := c.Post("/items", map[string]any{"name": "Cap"}, nil, RequestOptions{
		Headers: map[string]string{"Prefer": "return=minimal"},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "return=minimal", prefer)
	assert.Equal(t, "Cap", body["name"])
}

func TestHTTPClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(strings.Repeat("x", 2*maxErrorBody)))
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, time.Second).Delete("/items", nil)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, maxErrorBody)
}

func TestHTTPClient_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	var rows []map[string]any
	err := NewHTTPClient(srv.URL, time.Second).Get("/items", &rows)
	assert.Error(t, err)
}
