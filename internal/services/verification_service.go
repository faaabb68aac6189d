package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/trafficlens/accounts/internal/auth"
	"github.com/trafficlens/accounts/internal/models"
	pkglogger "github.com/trafficlens/accounts/pkg/logger"
)

// VerificationService handles the signup email verification workflow.
type VerificationService struct {
	users    UserRepository
	mailer   EmailSender
	logger   *slog.Logger
	tokenTTL time.Duration
}

func NewVerificationService(users UserRepository, mailer EmailSender, logger *slog.Logger, tokenTTL time.Duration) *VerificationService {
	return &VerificationService{
		users:    users,
		mailer:   mailer,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// Verify redeems a verification token. The repository applies the mark and
// clears the slot in one statement, so a second redemption of the same
// token finds nothing and fails.
func (s *VerificationService) Verify(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, models.ErrTokenInvalid
	}

	user, err := s.users.RedeemEmailVerification(ctx, auth.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification token not found, expired or already redeemed")
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("failed to redeem verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.String("user_id", user.ID))
	return user, nil
}

// Resend issues a fresh verification token when the account exists and is
// still unverified. It reports success either way so callers cannot probe
// which addresses are registered.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to look up user for resend", slog.Any("error", err))
		return nil
	}

	if user.EmailVerified() {
		return nil
	}

	rawToken, err := auth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return nil
	}

	if err := s.users.SetEmailVerification(ctx, user.ID, auth.HashToken(rawToken), time.Now().Add(s.tokenTTL)); err != nil {
		s.logger.Error("failed to store verification token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, rawToken); err != nil {
		s.logger.Warn("verification email not delivered",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil
	}

	s.logger.Info("verification email resent",
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}
