package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/trafficlens/accounts/internal/models"
	pkghttp "github.com/trafficlens/accounts/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const userContextKey contextKey = "user"

// RequireUser authenticates the request through the configured strategy and
// injects the resolved user into the request context.
func RequireUser(strategy SessionStrategy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := strategy.Authenticate(r.Context(), w, r)
			if err != nil {
				if errors.Is(err, models.ErrUnauthorized) {
					pkghttp.WriteUnauthorized(w, "Unauthorized")
					return
				}
				pkghttp.WriteInternalError(w, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// ContextWithUser returns a context carrying the authenticated user.
func ContextWithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the authenticated user from the request context,
// or nil when the request did not pass RequireUser.
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(userContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
