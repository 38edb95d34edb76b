package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ossohq/pe32-hub/internal/errors"
)

// Role is the access level a request was authenticated with
type Role string

const (
	// RoleWriter may insert samples and mutate the registry
	RoleWriter Role = "writer"
	// RoleReader may only read
	RoleReader Role = "reader"
)

type contextKey string

const roleContextKey contextKey = "role"

// KeyConfig holds the shared keys for the two access roles. An empty key
// disables that role; both empty disables authentication entirely, which
// matches deployments where access control lives in the database roles.
type KeyConfig struct {
	WriterKey string
	ReaderKey string
}

// KeyMiddleware authenticates requests with a static API key carried in
// the Authorization header or X-API-Key
type KeyMiddleware struct {
	config KeyConfig
}

func NewKeyMiddleware(config KeyConfig) *KeyMiddleware {
	return &KeyMiddleware{config: config}
}

// RequireWriter admits only requests carrying the writer key
func (m *KeyMiddleware) RequireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled() {
			next.ServeHTTP(w, m.withRole(r, RoleWriter))
			return
		}

		key := extractKey(r)
		if key == "" {
			handleError(w, errors.NewAuthError("no api key provided", nil))
			return
		}
		if !keyMatches(key, m.config.WriterKey) {
			handleError(w, errors.NewAuthorizationError("writer access required", nil))
			return
		}
		next.ServeHTTP(w, m.withRole(r, RoleWriter))
	})
}

// RequireReader admits requests carrying either key; writers can read
func (m *KeyMiddleware) RequireReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled() {
			next.ServeHTTP(w, m.withRole(r, RoleReader))
			return
		}

		key := extractKey(r)
		if key == "" {
			handleError(w, errors.NewAuthError("no api key provided", nil))
			return
		}
		if keyMatches(key, m.config.WriterKey) {
			next.ServeHTTP(w, m.withRole(r, RoleWriter))
			return
		}
		if keyMatches(key, m.config.ReaderKey) {
			next.ServeHTTP(w, m.withRole(r, RoleReader))
			return
		}
		handleError(w, errors.NewAuthorizationError("read access required", nil))
	})
}

func (m *KeyMiddleware) disabled() bool {
	return m.config.WriterKey == "" && m.config.ReaderKey == ""
}

func (m *KeyMiddleware) withRole(r *http.Request, role Role) *http.Request {
	ctx := context.WithValue(r.Context(), roleContextKey, role)
	return r.WithContext(ctx)
}

// RoleFromContext returns the role a request was admitted with
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleContextKey).(Role)
	return role, ok
}

func keyMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return r.Header.Get("X-API-Key")
}

func handleError(w http.ResponseWriter, apiErr *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code)
	json.NewEncoder(w).Encode(apiErr)
}
