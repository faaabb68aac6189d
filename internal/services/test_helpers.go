package services

import (
	"context"
	"time"

	"github.com/trafficlens/accounts/internal/models"
	pkgauth "github.com/trafficlens/accounts/pkg/auth"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc                 func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.User, error)
	CreateFunc                  func(ctx context.Context, user *models.User) (*models.User, error)
	SetEmailVerificationFunc    func(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error
	RedeemEmailVerificationFunc func(ctx context.Context, tokenDigest string) (*models.User, error)
	SetPasswordResetFunc        func(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error
	RedeemPasswordResetFunc     func(ctx context.Context, tokenDigest, newPasswordHash string) (*models.User, error)
	StartEmailChangeFunc        func(ctx context.Context, userID, pendingEmail, tokenDigest string, expiresAt time.Time) error
	RedeemEmailChangeFunc       func(ctx context.Context, tokenDigest string) (*models.User, error)
	UpdatePasswordHashFunc      func(ctx context.Context, userID, newPasswordHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) SetEmailVerification(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error {
	if m.SetEmailVerificationFunc != nil {
		return m.SetEmailVerificationFunc(ctx, userID, tokenDigest, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) RedeemEmailVerification(ctx context.Context, tokenDigest string) (*models.User, error) {
	if m.RedeemEmailVerificationFunc != nil {
		return m.RedeemEmailVerificationFunc(ctx, tokenDigest)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SetPasswordReset(ctx context.Context, userID, tokenDigest string, expiresAt time.Time) error {
	if m.SetPasswordResetFunc != nil {
		return m.SetPasswordResetFunc(ctx, userID, tokenDigest, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) RedeemPasswordReset(ctx context.Context, tokenDigest, newPasswordHash string) (*models.User, error) {
	if m.RedeemPasswordResetFunc != nil {
		return m.RedeemPasswordResetFunc(ctx, tokenDigest, newPasswordHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) StartEmailChange(ctx context.Context, userID, pendingEmail, tokenDigest string, expiresAt time.Time) error {
	if m.StartEmailChangeFunc != nil {
		return m.StartEmailChangeFunc(ctx, userID, pendingEmail, tokenDigest, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) RedeemEmailChange(ctx context.Context, tokenDigest string) (*models.User, error) {
	if m.RedeemEmailChangeFunc != nil {
		return m.RedeemEmailChangeFunc(ctx, tokenDigest)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, userID, newPasswordHash string) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, userID, newPasswordHash)
	}
	return nil
}

// MockEmailSender implements EmailSender for testing. Each send is recorded
// so tests can assert on recipients and raw tokens.
type MockEmailSender struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, token string) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string) error
	SendEmailChangeEmailFunc   func(ctx context.Context, email, token string) error

	VerificationEmails []SentEmail
	ResetEmails        []SentEmail
	EmailChangeEmails  []SentEmail
}

type SentEmail struct {
	To    string
	Token string
}

func (m *MockEmailSender) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.VerificationEmails = append(m.VerificationEmails, SentEmail{To: email, Token: token})
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token)
	}
	return nil
}

func (m *MockEmailSender) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.ResetEmails = append(m.ResetEmails, SentEmail{To: email, Token: token})
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token)
	}
	return nil
}

func (m *MockEmailSender) SendEmailChangeEmail(ctx context.Context, email, token string) error {
	m.EmailChangeEmails = append(m.EmailChangeEmails, SentEmail{To: email, Token: token})
	if m.SendEmailChangeEmailFunc != nil {
		return m.SendEmailChangeEmailFunc(ctx, email, token)
	}
	return nil
}

// NewTestUser creates a user with a real bcrypt hash of the given password
func NewTestUser(id, email, password string) *models.User {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	now := time.Now()
	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
