package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleRecorder(got *Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := RoleFromContext(r.Context())
		if ok {
			*got = role
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestDisabledKeysPassEverything(t *testing.T) {
	m := NewKeyMiddleware(KeyConfig{})

	var role Role
	rec := httptest.NewRecorder()
	m.RequireWriter(roleRecorder(&role)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleWriter, role)

	rec = httptest.NewRecorder()
	m.RequireReader(roleRecorder(&role)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleReader, role)
}

func TestWriterKeyGrantsWriterRoleOnReadRoutes(t *testing.T) {
	m := NewKeyMiddleware(KeyConfig{WriterKey: "w", ReaderKey: "r"})

	var role Role
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer w")

	rec := httptest.NewRecorder()
	m.RequireReader(roleRecorder(&role)).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleWriter, role)
}

func TestMissingAndWrongKeys(t *testing.T) {
	m := NewKeyMiddleware(KeyConfig{WriterKey: "w", ReaderKey: "r"})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	m.RequireWriter(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-API-Key", "r")
	rec = httptest.NewRecorder()
	m.RequireWriter(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "nope")
	rec = httptest.NewRecorder()
	m.RequireReader(next).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExtractKeySources(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", extractKey(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", extractKey(req), "scheme is case insensitive")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "xyz")
	assert.Equal(t, "xyz", extractKey(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", extractKey(req), "only bearer tokens are accepted")
}
