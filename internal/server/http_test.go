package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/contact-graph/internal/session"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

func newHandler(t *testing.T, token string) http.Handler {
	t.Helper()
	cat, err := storage.OpenCatalog(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	sess := session.New(nil, 2*time.Hour)
	t.Cleanup(sess.Close)
	return NewHTTPHandler(New(cat, sess), token, nil)
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthzIsOpen(t *testing.T) {
	h := newHandler(t, "secret")
	rec := get(h, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBearerToken(t *testing.T) {
	h := newHandler(t, "secret")

	rec := get(h, "/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	rec = get(h, "/metrics", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(h, "/metrics", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNoTokenConfigured(t *testing.T) {
	h := newHandler(t, "")
	rec := get(h, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
