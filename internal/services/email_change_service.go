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

// EmailChangeService handles the two-step email change workflow: populate
// the change slot with the candidate address, confirm from a link sent to
// that address.
type EmailChangeService struct {
	users    UserRepository
	mailer   EmailSender
	logger   *slog.Logger
	tokenTTL time.Duration
}

func NewEmailChangeService(users UserRepository, mailer EmailSender, logger *slog.Logger, tokenTTL time.Duration) *EmailChangeService {
	return &EmailChangeService{
		users:    users,
		mailer:   mailer,
		logger:   logger,
		tokenTTL: tokenTTL,
	}
}

// Start records newEmail as pending and mails the confirmation link to it.
// The address is rejected up front if another account holds it; the
// decisive uniqueness check still happens at confirmation time.
func (s *EmailChangeService) Start(ctx context.Context, user *models.User, newEmail, currentPassword string) error {
	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.logger.Info("email change failed: invalid credentials", slog.String("user_id", user.ID))
		return models.ErrInvalidCredentials
	}

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))

	_, err := s.users.GetByEmail(ctx, newEmail)
	if err == nil {
		return models.ErrEmailTaken
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check email availability", slog.Any("error", err))
		return models.ErrInternalServer
	}

	rawToken, err := auth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate email change token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.StartEmailChange(ctx, user.ID, newEmail, auth.HashToken(rawToken), time.Now().Add(s.tokenTTL)); err != nil {
		s.logger.Error("failed to store email change token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.mailer.SendEmailChangeEmail(ctx, newEmail, rawToken); err != nil {
		s.logger.Warn("email change mail not delivered; token remains redeemable",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.logger.Info("email change requested", slog.String("user_id", user.ID))
	return nil
}

// Confirm redeems a change token: email <- pendingEmail, slot cleared, new
// address marked verified, all in one statement. If another account
// claimed the pending address since Start, the unique constraint decides
// and the caller sees ErrEmailTaken with no state changed.
func (s *EmailChangeService) Confirm(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, models.ErrTokenInvalid
	}

	user, err := s.users.RedeemEmailChange(ctx, auth.HashToken(rawToken))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			s.logger.Info("email change token not found, expired or already redeemed")
			return nil, models.ErrTokenInvalid
		case errors.Is(err, models.ErrEmailTaken):
			s.logger.Info("email change lost uniqueness race")
			return nil, models.ErrEmailTaken
		default:
			s.logger.Error("failed to redeem email change token", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	s.logger.Info("email change confirmed", slog.String("user_id", user.ID))
	return user, nil
}
