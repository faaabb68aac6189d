package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/trafficlens/accounts/internal/models"
)

// SessionStore is the slice of the session repository the database
// strategy needs.
type SessionStore interface {
	Create(ctx context.Context, userID, tokenDigest string, expiresAt time.Time, userAgent, ip string) (*models.Session, error)
	GetByTokenDigest(ctx context.Context, tokenDigest string) (*models.Session, error)
	DeleteByTokenDigest(ctx context.Context, tokenDigest string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// DatabaseStrategy keeps one session row per login, keyed by the sha256
// digest of an opaque cookie token. Deleting the row revokes the session,
// which is why this is the default strategy.
type DatabaseStrategy struct {
	sessions SessionStore
	users    UserGetter
	ttl      time.Duration
	cookies  CookieConfig
	logger   *slog.Logger
}

func NewDatabaseStrategy(sessions SessionStore, users UserGetter, ttl time.Duration, cookies CookieConfig, logger *slog.Logger) *DatabaseStrategy {
	return &DatabaseStrategy{
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		cookies:  cookies,
		logger:   logger,
	}
}

func (s *DatabaseStrategy) Issue(ctx context.Context, w http.ResponseWriter, user *models.User, meta Metadata) error {
	rawToken, err := GenerateToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.ttl)
	if _, err := s.sessions.Create(ctx, user.ID, HashToken(rawToken), expiresAt, meta.UserAgent, meta.IP); err != nil {
		return err
	}

	SetAuthCookie(w, SessionCookie, rawToken, s.ttl, s.cookies)
	return nil
}

func (s *DatabaseStrategy) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, error) {
	rawToken := GetCookie(r, SessionCookie)
	if rawToken == "" {
		return nil, models.ErrUnauthorized
	}

	digest := HashToken(rawToken)

	session, err := s.sessions.GetByTokenDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	if session.IsExpired(time.Now()) {
		// Lazy expiry: drop the dead row best-effort and treat the request
		// as unauthenticated.
		if err := s.sessions.DeleteByTokenDigest(ctx, digest); err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("failed to delete expired session", slog.Any("error", err))
		}
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, err
	}

	return user, nil
}

func (s *DatabaseStrategy) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if rawToken := GetCookie(r, SessionCookie); rawToken != "" {
		if err := s.sessions.DeleteByTokenDigest(ctx, HashToken(rawToken)); err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("failed to delete session on logout", slog.Any("error", err))
		}
	}
	ClearAuthCookie(w, SessionCookie, s.cookies)
	return nil
}

func (s *DatabaseStrategy) RevokeAll(ctx context.Context, w http.ResponseWriter, userID string) error {
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	ClearAuthCookie(w, SessionCookie, s.cookies)
	return nil
}
