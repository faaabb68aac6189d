package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trafficlens/accounts/internal/database"
	"github.com/trafficlens/accounts/internal/models"
)

const userColumns = `id, email, password_hash, email_verified_at,
		email_verify_hash, email_verify_expires,
		reset_hash, reset_expires,
		pending_email, email_change_hash, email_change_expires,
		created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.EmailVerifiedAt,
		&user.EmailVerifyHash, &user.EmailVerifyExpires,
		&user.ResetHash, &user.ResetExpires,
		&user.PendingEmail, &user.EmailChangeHash, &user.EmailChangeExpires,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

// Create inserts a new user with an already-populated verify slot so the
// signup verification mail can go out in the same request. A duplicate
// email surfaces as ErrEmailTaken via the unique constraint.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO users (id, email, password_hash, email_verify_hash, email_verify_expires, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash,
		user.EmailVerifyHash, user.EmailVerifyExpires,
		user.CreatedAt, user.UpdatedAt,
	))
}

// SetEmailVerification (re)populates the verify slot. Any previous pending
// verification token for the user is superseded.
func (r *UserRepository) SetEmailVerification(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET email_verify_hash = $1, email_verify_expires = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.pool.Exec(ctx, query, tokenDigest, expiresAt, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RedeemEmailVerification marks the email verified and clears the verify
// slot in one statement. Zero rows means the token is unknown, expired or
// already redeemed; the caller must not retry.
func (r *UserRepository) RedeemEmailVerification(ctx context.Context, tokenDigest string) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET email_verified_at = NOW(),
		    email_verify_hash = NULL,
		    email_verify_expires = NULL,
		    updated_at = NOW()
		WHERE email_verify_hash = $1 AND email_verify_expires > NOW()
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, tokenDigest))
}

// SetPasswordReset populates the reset slot.
func (r *UserRepository) SetPasswordReset(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_hash = $1, reset_expires = $2, updated_at = NOW()
		WHERE id = $3
	`
	result, err := r.pool.Exec(ctx, query, tokenDigest, expiresAt, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RedeemPasswordReset swaps in the new password hash and clears the reset
// slot atomically, so a reset token can never be replayed.
func (r *UserRepository) RedeemPasswordReset(ctx context.Context, tokenDigest, newPasswordHash string) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET password_hash = $2,
		    reset_hash = NULL,
		    reset_expires = NULL,
		    updated_at = NOW()
		WHERE reset_hash = $1 AND reset_expires > NOW()
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, tokenDigest, newPasswordHash))
}

// StartEmailChange populates the email-change slot with the candidate
// address. A previous pending change is superseded.
func (r *UserRepository) StartEmailChange(ctx context.Context, userID, pendingEmail, tokenDigest string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET pending_email = $1, email_change_hash = $2, email_change_expires = $3, updated_at = NOW()
		WHERE id = $4
	`
	result, err := r.pool.Exec(ctx, query, pendingEmail, tokenDigest, expiresAt, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RedeemEmailChange swaps email <- pending_email, clears the slot and marks
// the new address verified (the confirmation link proved ownership), all in
// one statement. If another account claimed the pending address in the
// meantime the unique constraint fires and this returns ErrEmailTaken
// without mutating anything.
func (r *UserRepository) RedeemEmailChange(ctx context.Context, tokenDigest string) (*models.User, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET email = pending_email,
		    email_verified_at = NOW(),
		    pending_email = NULL,
		    email_change_hash = NULL,
		    email_change_expires = NULL,
		    updated_at = NOW()
		WHERE email_change_hash = $1
		  AND email_change_expires > NOW()
		  AND pending_email IS NOT NULL
		RETURNING %s
	`, userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, tokenDigest))
}

// UpdatePasswordHash sets a new password digest for an authenticated change.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, newPasswordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := r.pool.Exec(ctx, query, newPasswordHash, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
