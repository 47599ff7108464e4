package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/catalog/pkg/errors"
	"github.com/utafrali/catalog/pkg/httputil"
)

// Headers set by the API gateway after it has validated the caller's token.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// RoleAdmin grants administrative catalog actions.
const RoleAdmin = "admin"

// Identity is the caller as forwarded by the gateway. The zero value is an
// anonymous caller.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// Authenticated reports whether the gateway identified the caller.
func (i Identity) Authenticated() bool {
	return i.UserID != uuid.Nil
}

// IsAdmin reports whether the caller carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Authenticated() && i.Role == RoleAdmin
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, or an anonymous identity
// when none was stored.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// UserIDFromContext returns the caller's user id and whether one is present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id := IdentityFromContext(ctx)
	return id.UserID, id.Authenticated()
}

// GatewayIdentity reads the identity headers forwarded by the gateway into
// the request context. Requests without X-User-ID continue anonymously; a
// malformed X-User-ID is rejected with 401.
func GatewayIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			httputil.WriteError(w, r, apperrors.Unauthorized("invalid "+HeaderUserID+" header"), nil)
			return
		}

		id := Identity{
			UserID: userID,
			Role:   strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireUser rejects anonymous callers with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).Authenticated() {
			httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that allows only identified callers holding
// one of the given roles. Anonymous callers get 401, others 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(role)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if !id.Authenticated() {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				httputil.WriteError(w, r, apperrors.Forbidden("insufficient permissions"), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
