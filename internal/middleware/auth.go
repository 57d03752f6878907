// Package middleware authenticates requests and installs the caller's
// identity and tenancy scope into the request context. Handlers never
// construct a scope themselves; they read the one installed here.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/kudosworks/backend/internal/auth"
	"github.com/kudosworks/backend/internal/models"
	"github.com/kudosworks/backend/internal/tenancy"
)

type contextKey string

const ctxIdentityKey contextKey = "identity"

// BearerAuth validates the Authorization bearer token and puts the resolved
// identity plus its tenancy scope into context. Requests without a valid
// token get 401; the scope in their context would fail closed anyway.
func BearerAuth(svc auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			id, err := svc.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxIdentityKey, id)
			ctx = tenancy.WithScope(ctx, id.Scope())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromCtx returns the authenticated identity or nil.
func IdentityFromCtx(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(ctxIdentityKey).(*auth.Identity)
	return id
}

// WithIdentity returns a context carrying the given identity and its scope,
// for callers that bypass BearerAuth (tests, internal tooling).
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	ctx = context.WithValue(ctx, ctxIdentityKey, id)
	return tenancy.WithScope(ctx, id.Scope())
}

// RequireRole rejects callers whose role does not satisfy the predicate.
// Chain after BearerAuth.
func RequireRole(allowed func(models.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromCtx(r.Context())
			if id == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if !allowed(id.Role) {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
