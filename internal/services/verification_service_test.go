package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficlens/accounts/internal/auth"
	"github.com/trafficlens/accounts/internal/models"
)

func newTestVerificationService(users *MockUserRepository, mailer *MockEmailSender) *VerificationService {
	return NewVerificationService(users, mailer, slog.Default(), 24*time.Hour)
}

func TestVerificationService_Verify_Success(t *testing.T) {
	rawToken, err := auth.GenerateToken()
	require.NoError(t, err)

	mockUserRepo := &MockUserRepository{
		RedeemEmailVerificationFunc: func(ctx context.Context, tokenDigest string) (*models.User, error) {
			// The service must look up by digest, never by the raw token
			assert.Equal(t, auth.HashToken(rawToken), tokenDigest)
			now := time.Now()
			return &models.User{ID: "user123", Email: "user@example.com", EmailVerifiedAt: &now}, nil
		},
	}

	service := newTestVerificationService(mockUserRepo, &MockEmailSender{})

	user, err := service.Verify(context.Background(), rawToken)

	require.NoError(t, err)
	assert.True(t, user.EmailVerified())
}

func TestVerificationService_Verify_UnknownToken(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		RedeemEmailVerificationFunc: func(ctx context.Context, tokenDigest string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	service := newTestVerificationService(mockUserRepo, &MockEmailSender{})

	user, err := service.Verify(context.Background(), "bogus-token")

	assert.ErrorIs(t, err, models.ErrTokenInvalid)
	assert.Nil(t, user)
}

func TestVerificationService_Verify_SecondRedemptionFails(t *testing.T) {
	rawToken, err := auth.GenerateToken()
	require.NoError(t, err)

	redeemed := false
	mockUserRepo := &MockUserRepository{
		RedeemEmailVerificationFunc: func(ctx context.Context, tokenDigest string) (*models.User, error) {
			if redeemed {
				// Slot already cleared; the UPDATE matches no row
				return nil, models.ErrNotFound
			}
			redeemed = true
			now := time.Now()
			return &models.User{ID: "user123", EmailVerifiedAt: &now}, nil
		},
	}

	service := newTestVerificationService(mockUserRepo, &MockEmailSender{})

	_, err = service.Verify(context.Background(), rawToken)
	require.NoError(t, err)

	_, err = service.Verify(context.Background(), rawToken)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestVerificationService_Verify_EmptyToken(t *testing.T) {
	service := newTestVerificationService(&MockUserRepository{}, &MockEmailSender{})

	_, err := service.Verify(context.Background(), "")

	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestVerificationService_Resend_UnknownEmailReportsSuccess(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}
	mockMailer := &MockEmailSender{}

	service := newTestVerificationService(mockUserRepo, mockMailer)

	err := service.Resend(context.Background(), "nobody@example.com")

	assert.NoError(t, err)
	assert.Empty(t, mockMailer.VerificationEmails)
}

func TestVerificationService_Resend_AlreadyVerifiedSendsNothing(t *testing.T) {
	now := time.Now()
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "user123", Email: email, EmailVerifiedAt: &now}, nil
		},
	}
	mockMailer := &MockEmailSender{}

	service := newTestVerificationService(mockUserRepo, mockMailer)

	err := service.Resend(context.Background(), "user@example.com")

	assert.NoError(t, err)
	assert.Empty(t, mockMailer.VerificationEmails)
}

func TestVerificationService_Resend_ReplacesSlotAndMails(t *testing.T) {
	var storedDigest string
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: "user123", Email: email}, nil
		},
		SetEmailVerificationFunc: func(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error {
			assert.Equal(t, "user123", userID)
			assert.True(t, expiresAt.After(time.Now()))
			storedDigest = tokenDigest
			return nil
		},
	}
	mockMailer := &MockEmailSender{}

	service := newTestVerificationService(mockUserRepo, mockMailer)

	err := service.Resend(context.Background(), "user@example.com")

	require.NoError(t, err)
	require.Len(t, mockMailer.VerificationEmails, 1)
	assert.Equal(t, auth.HashToken(mockMailer.VerificationEmails[0].Token), storedDigest)
}
