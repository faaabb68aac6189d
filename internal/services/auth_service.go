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

// UserRepository defines the user data access the services depend on.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	SetEmailVerification(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error
	RedeemEmailVerification(ctx context.Context, tokenDigest string) (*models.User, error)
	SetPasswordReset(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error
	RedeemPasswordReset(ctx context.Context, tokenDigest, newPasswordHash string) (*models.User, error)
	StartEmailChange(ctx context.Context, userID, pendingEmail, tokenDigest string, expiresAt time.Time) error
	RedeemEmailChange(ctx context.Context, tokenDigest string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, userID, newPasswordHash string) error
}

// AuthService handles signup and credential checks.
type AuthService struct {
	users          UserRepository
	mailer         EmailSender
	timing         *auth.TimingDelay
	logger         *slog.Logger
	verifyTokenTTL time.Duration
}

func NewAuthService(users UserRepository, mailer EmailSender, timing *auth.TimingDelay, logger *slog.Logger, verifyTokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:          users,
		mailer:         mailer,
		timing:         timing,
		logger:         logger,
		verifyTokenTTL: verifyTokenTTL,
	}
}

// Signup creates an account with the verify slot already populated and
// sends the verification link. The unique constraint decides concurrent
// signups for the same address: the loser gets ErrEmailTaken.
//
// A mail delivery failure does not fail the signup; the slot stays valid
// until expiry and the user can request a resend.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, models.ErrBadRequest
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	rawToken, err := auth.GenerateToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	digest := auth.HashToken(rawToken)
	expiresAt := time.Now().Add(s.verifyTokenTTL)

	user, err := s.users.Create(ctx, &models.User{
		Email:              email,
		PasswordHash:       passwordHash,
		EmailVerifyHash:    &digest,
		EmailVerifyExpires: &expiresAt,
	})
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			s.logger.Info("signup failed: email already registered")
			return nil, models.ErrEmailTaken
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.mailer.SendVerificationEmail(ctx, email, rawToken); err != nil {
		s.logger.Warn("verification email not delivered; token remains redeemable",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.logger.Info("user signed up", slog.String("user_id", user.ID))
	return user, nil
}

// Login checks credentials. Unknown email and wrong password return the
// same ErrInvalidCredentials, with a timing delay on the failure path so
// the two cases are also indistinguishable on the wire.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: invalid credentials")
			s.timing.Wait()
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login failed: invalid credentials", slog.String("user_id", user.ID))
		s.timing.Wait()
		return nil, models.ErrInvalidCredentials
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return user, nil
}
