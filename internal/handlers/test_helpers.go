package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trafficlens/accounts/internal/auth"
	"github.com/trafficlens/accounts/internal/models"
	pkghttp "github.com/trafficlens/accounts/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext attaches an authenticated user to the request, as the
// RequireUser middleware would.
func WithUserContext(req *http.Request, user *models.User) *http.Request {
	return req.WithContext(auth.ContextWithUser(req.Context(), user))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertOKResponse checks for the uniform {"ok":true} success body
func AssertOKResponse(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusOK, w.Code, "Response status mismatch")
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignupFunc func(ctx context.Context, email, password string) (*models.User, error)
	LoginFunc  func(ctx context.Context, email, password string) (*models.User, error)
}

func (m *MockAuthService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, email, password)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrInvalidCredentials
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	VerifyFunc func(ctx context.Context, rawToken string) (*models.User, error)
	ResendFunc func(ctx context.Context, email string) error
}

func (m *MockVerificationService) Verify(ctx context.Context, rawToken string) (*models.User, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, rawToken)
	}
	return nil, models.ErrTokenInvalid
}

func (m *MockVerificationService) Resend(ctx context.Context, email string) error {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, email)
	}
	return nil
}

// MockPasswordService implements PasswordServiceInterface for testing
type MockPasswordService struct {
	ForgotFunc func(ctx context.Context, email string) error
	ResetFunc  func(ctx context.Context, rawToken, newPassword string) (*models.User, error)
	ChangeFunc func(ctx context.Context, user *models.User, currentPassword, newPassword string) error
}

func (m *MockPasswordService) Forgot(ctx context.Context, email string) error {
	if m.ForgotFunc != nil {
		return m.ForgotFunc(ctx, email)
	}
	return nil
}

func (m *MockPasswordService) Reset(ctx context.Context, rawToken, newPassword string) (*models.User, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, rawToken, newPassword)
	}
	return nil, models.ErrTokenInvalid
}

func (m *MockPasswordService) Change(ctx context.Context, user *models.User, currentPassword, newPassword string) error {
	if m.ChangeFunc != nil {
		return m.ChangeFunc(ctx, user, currentPassword, newPassword)
	}
	return nil
}

// MockEmailChangeService implements EmailChangeServiceInterface for testing
type MockEmailChangeService struct {
	StartFunc   func(ctx context.Context, user *models.User, newEmail, currentPassword string) error
	ConfirmFunc func(ctx context.Context, rawToken string) (*models.User, error)
}

func (m *MockEmailChangeService) Start(ctx context.Context, user *models.User, newEmail, currentPassword string) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, user, newEmail, currentPassword)
	}
	return nil
}

func (m *MockEmailChangeService) Confirm(ctx context.Context, rawToken string) (*models.User, error) {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, rawToken)
	}
	return nil, models.ErrTokenInvalid
}

// MockSessionStrategy implements auth.SessionStrategy for testing and
// records every call so tests can assert on session lifecycle side effects.
type MockSessionStrategy struct {
	IssueFunc        func(ctx context.Context, w http.ResponseWriter, user *models.User, meta auth.Metadata) error
	AuthenticateFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, error)
	ClearFunc        func(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	RevokeAllFunc    func(ctx context.Context, w http.ResponseWriter, userID string) error

	IssuedUsers  []*models.User
	ClearCalls   int
	RevokedUsers []string
}

func (m *MockSessionStrategy) Issue(ctx context.Context, w http.ResponseWriter, user *models.User, meta auth.Metadata) error {
	m.IssuedUsers = append(m.IssuedUsers, user)
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, w, user, meta)
	}
	return nil
}

func (m *MockSessionStrategy) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, w, r)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockSessionStrategy) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	m.ClearCalls++
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, w, r)
	}
	return nil
}

func (m *MockSessionStrategy) RevokeAll(ctx context.Context, w http.ResponseWriter, userID string) error {
	m.RevokedUsers = append(m.RevokedUsers, userID)
	if m.RevokeAllFunc != nil {
		return m.RevokeAllFunc(ctx, w, userID)
	}
	return nil
}
