package auth

import (
	"context"
	"net/http"

	"github.com/trafficlens/accounts/internal/models"
)

// Metadata is informational request context recorded with a session.
type Metadata struct {
	UserAgent string
	IP        string
}

// UserGetter is the slice of the user repository the strategies need.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionStrategy is the single session issuance design the server runs
// with. Exactly one implementation is wired at startup; every route
// authenticates through it.
//
// Authenticate receives the ResponseWriter because the stateless strategy
// re-issues the cookie pair when it falls back to the refresh token.
type SessionStrategy interface {
	// Issue establishes a session for user after a successful credential
	// check and sets the response cookie(s).
	Issue(ctx context.Context, w http.ResponseWriter, user *models.User, meta Metadata) error

	// Authenticate resolves the current user from request cookies, or
	// returns ErrUnauthorized.
	Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, error)

	// Clear ends the session presented by this request and clears cookies.
	Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error

	// RevokeAll invalidates every session of the user where the design
	// allows it, and clears this browser's cookies either way.
	RevokeAll(ctx context.Context, w http.ResponseWriter, userID string) error
}
