package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/trafficlens/accounts/internal/auth"
	"github.com/trafficlens/accounts/internal/models"
	pkgauth "github.com/trafficlens/accounts/pkg/auth"
)

// PasswordService handles the forgot/reset workflow and authenticated
// password changes.
type PasswordService struct {
	users    UserRepository
	mailer   EmailSender
	logger   *slog.Logger
	resetTTL time.Duration
}

func NewPasswordService(users UserRepository, mailer EmailSender, logger *slog.Logger, resetTTL time.Duration) *PasswordService {
	return &PasswordService{
		users:    users,
		mailer:   mailer,
		logger:   logger,
		resetTTL: resetTTL,
	}
}

// Forgot starts a reset for the given address. It never reports whether
// the account exists; only an existing account gets a reset slot and a
// mail. A delivery failure leaves the slot valid until expiry, so the
// workflow is restartable by asking again.
func (s *PasswordService) Forgot(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return nil
	}

	rawToken, err := auth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return nil
	}

	if err := s.users.SetPasswordReset(ctx, user.ID, auth.HashToken(rawToken), time.Now().Add(s.resetTTL)); err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, rawToken); err != nil {
		s.logger.Warn("reset email not delivered; token remains redeemable",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.logger.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// Reset redeems a reset token and installs the new password. Update and
// slot clear are one statement; a replayed token finds nothing.
func (s *PasswordService) Reset(ctx context.Context, rawToken, newPassword string) (*models.User, error) {
	if rawToken == "" {
		return nil, models.ErrTokenInvalid
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return nil, models.ErrBadRequest
	}

	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.RedeemPasswordReset(ctx, auth.HashToken(rawToken), newHash)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("reset token not found, expired or already redeemed")
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("failed to redeem reset token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("password reset completed", slog.String("user_id", user.ID))
	return user, nil
}

// Change updates the password of an authenticated user after re-checking
// the current one.
func (s *PasswordService) Change(ctx context.Context, user *models.User, currentPassword, newPassword string) error {
	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.logger.Info("password change failed: invalid credentials", slog.String("user_id", user.ID))
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.ErrBadRequest
	}

	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		s.logger.Error("failed to update password",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("user_id", user.ID))
	return nil
}
