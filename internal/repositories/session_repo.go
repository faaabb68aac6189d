package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trafficlens/accounts/internal/database"
	"github.com/trafficlens/accounts/internal/models"
)

// SessionRepository persists login sessions for the database strategy.
// Rows are keyed by the sha256 digest of the opaque cookie token; the raw
// token never touches the database.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var session models.Session

	err := scanner.Scan(
		&session.ID, &session.UserID, &session.TokenDigest,
		&session.ExpiresAt, &session.UserAgent, &session.IP,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &session, nil
}

func (r *SessionRepository) Create(ctx context.Context, userID, tokenDigest string, expiresAt time.Time, userAgent, ip string) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, token_digest, expires_at, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, token_digest, expires_at, user_agent, ip, created_at
	`

	return scanSessionRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), userID, tokenDigest, expiresAt, userAgent, ip,
	))
}

func (r *SessionRepository) GetByTokenDigest(ctx context.Context, tokenDigest string) (*models.Session, error) {
	query := `
		SELECT id, user_id, token_digest, expires_at, user_agent, ip, created_at
		FROM sessions WHERE token_digest = $1
	`

	return scanSessionRow(r.pool.QueryRow(ctx, query, tokenDigest))
}

func (r *SessionRepository) DeleteByTokenDigest(ctx context.Context, tokenDigest string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_digest = $1`, tokenDigest)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteAllForUser revokes every active session of a user. Used after
// password change and password reset to force re-login everywhere.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}
