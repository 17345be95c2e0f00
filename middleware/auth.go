package middleware

import (
	"context"
	"net/http"

	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/services"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity resolves every request to a user or guest identity and stores it
// in the context. A present-but-invalid token is rejected here so handlers
// never see a half-authenticated request.
func Identity(resolver *services.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.Resolve(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser gates routes that are only for registered users.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity.UserID == nil {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns the identity stored by the Identity
// middleware.
func IdentityFromContext(ctx context.Context) (game.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(game.Identity)
	return identity, ok
}
