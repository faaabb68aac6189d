package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/trafficlens/accounts/internal/models"
)

// StatelessStrategy issues a signed access/refresh cookie pair and keeps no
// server record. Logout and RevokeAll can only clear this browser's
// cookies; outstanding tokens stay valid until they expire.
type StatelessStrategy struct {
	tm         *TokenManager
	users      UserGetter
	accessTTL  time.Duration
	refreshTTL time.Duration
	cookies    CookieConfig
}

func NewStatelessStrategy(tm *TokenManager, users UserGetter, accessTTL, refreshTTL time.Duration, cookies CookieConfig) *StatelessStrategy {
	return &StatelessStrategy{
		tm:         tm,
		users:      users,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		cookies:    cookies,
	}
}

func (s *StatelessStrategy) setPair(w http.ResponseWriter, user *models.User) error {
	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return err
	}
	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return err
	}

	SetAuthCookie(w, AccessCookie, accessToken, s.accessTTL, s.cookies)
	SetAuthCookie(w, RefreshCookie, refreshToken, s.refreshTTL, s.cookies)
	return nil
}

func (s *StatelessStrategy) Issue(ctx context.Context, w http.ResponseWriter, user *models.User, meta Metadata) error {
	return s.setPair(w, user)
}

func (s *StatelessStrategy) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, error) {
	// 1) access token
	if access := GetCookie(r, AccessCookie); access != "" {
		claims, err := s.tm.ValidateToken(access)
		if err == nil && claims.Type == models.TokenTypeAccess {
			user, err := s.users.GetByID(ctx, claims.UserID)
			if err == nil {
				return user, nil
			}
			if !errors.Is(err, models.ErrNotFound) {
				return nil, err
			}
		}
		// fall through to the refresh flow
	}

	// 2) refresh token: sliding re-issue of both cookies
	refresh := GetCookie(r, RefreshCookie)
	if refresh == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refresh)
	if err != nil || claims.Type != models.TokenTypeRefresh {
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	if err := s.setPair(w, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *StatelessStrategy) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ClearAuthCookie(w, AccessCookie, s.cookies)
	ClearAuthCookie(w, RefreshCookie, s.cookies)
	return nil
}

// RevokeAll clears cookies for this browser only. Stateless tokens cannot
// be invalidated server-side.
func (s *StatelessStrategy) RevokeAll(ctx context.Context, w http.ResponseWriter, userID string) error {
	ClearAuthCookie(w, AccessCookie, s.cookies)
	ClearAuthCookie(w, RefreshCookie, s.cookies)
	return nil
}
