package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/trafficlens/accounts/internal/auth"
	"github.com/trafficlens/accounts/internal/models"
	pkghttp "github.com/trafficlens/accounts/pkg/http"
)

// VerificationServiceInterface defines the email verification workflow
type VerificationServiceInterface interface {
	Verify(ctx context.Context, rawToken string) (*models.User, error)
	Resend(ctx context.Context, email string) error
}

// PasswordServiceInterface defines the password workflows
type PasswordServiceInterface interface {
	Forgot(ctx context.Context, email string) error
	Reset(ctx context.Context, rawToken, newPassword string) (*models.User, error)
	Change(ctx context.Context, user *models.User, currentPassword, newPassword string) error
}

// EmailChangeServiceInterface defines the email change workflow
type EmailChangeServiceInterface interface {
	Start(ctx context.Context, user *models.User, newEmail, currentPassword string) error
	Confirm(ctx context.Context, rawToken string) (*models.User, error)
}

// AccountHandler handles email verification, password recovery and the
// email change workflow.
type AccountHandler struct {
	verification VerificationServiceInterface
	passwords    PasswordServiceInterface
	emailChange  EmailChangeServiceInterface
	strategy     auth.SessionStrategy
}

func NewAccountHandler(
	verification VerificationServiceInterface,
	passwords PasswordServiceInterface,
	emailChange EmailChangeServiceInterface,
	strategy auth.SessionStrategy,
) *AccountHandler {
	return &AccountHandler{
		verification: verification,
		passwords:    passwords,
		emailChange:  emailChange,
		strategy:     strategy,
	}
}

// Request DTOs

type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

type ChangeEmailRequest struct {
	NewEmail        string `json:"newEmail" validate:"required,email"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
}

// VerifyEmail redeems a verification token.
func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if _, err := h.verification.Verify(r.Context(), req.Token); err != nil {
		if errors.Is(err, models.ErrTokenInvalid) {
			pkghttp.WriteBadRequest(w, "Invalid or expired token")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteOK(w)
}

// ResendVerification re-sends the verification email. The response never
// reveals whether the address is registered.
func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.verification.Resend(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteOK(w)
}

// ForgotPassword starts a password reset. The response never reveals
// whether the address is registered.
func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.passwords.Forgot(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteOK(w)
}

// ResetPassword redeems a reset token and installs the new password. On
// success every session of the affected user is revoked.
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.passwords.Reset(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTokenInvalid):
			pkghttp.WriteBadRequest(w, "Invalid or expired token")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid input")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if err := h.strategy.RevokeAll(r.Context(), w, user.ID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteOK(w)
}

// ChangePassword updates the password of the authenticated user and
// revokes every session. Requires the RequireUser middleware.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.passwords.Change(r.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid input")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if err := h.strategy.RevokeAll(r.Context(), w, user.ID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteOK(w)
}

// ChangeEmail starts an email change for the authenticated user. Requires
// the RequireUser middleware.
func (h *AccountHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req ChangeEmailRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.emailChange.Start(r.Context(), user, req.NewEmail, req.CurrentPassword); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
		case errors.Is(err, models.ErrEmailTaken):
			pkghttp.WriteConflict(w, "Email already in use")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteOK(w)
}

// ConfirmEmailChange redeems an email change token. On success every
// session of the affected user is revoked; sign-in continues with the
// new address.
func (h *AccountHandler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.emailChange.Confirm(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTokenInvalid):
			pkghttp.WriteBadRequest(w, "Invalid or expired token")
		case errors.Is(err, models.ErrEmailTaken):
			pkghttp.WriteConflict(w, "Email already in use")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if err := h.strategy.RevokeAll(r.Context(), w, user.ID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteOK(w)
}
