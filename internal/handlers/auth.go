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

// AuthServiceInterface defines the signup/login business logic
type AuthServiceInterface interface {
	Signup(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
}

// AuthHandler handles signup, login, logout and the current-user lookup.
type AuthHandler struct {
	service  AuthServiceInterface
	strategy auth.SessionStrategy
	ipConfig *pkghttp.IPConfig
}

func NewAuthHandler(service AuthServiceInterface, strategy auth.SessionStrategy, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		strategy: strategy,
		ipConfig: ipConfig,
	}
}

// Request DTOs

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MeResponse is the body of GET /me.
type MeResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

// Signup handles account creation.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if _, err := h.service.Signup(r.Context(), req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, models.ErrEmailTaken):
			pkghttp.WriteConflict(w, "Email already in use")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid input")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteOK(w)
}

// Login authenticates credentials and issues a session through the
// configured strategy.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	meta := auth.Metadata{
		UserAgent: r.Header.Get("User-Agent"),
		IP:        pkghttp.ExtractClientIP(r, h.ipConfig),
	}
	if err := h.strategy.Issue(r.Context(), w, user, meta); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteOK(w)
}

// Logout ends the presented session. Succeeds whether or not a valid
// session cookie was sent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.strategy.Clear(r.Context(), w, r); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}
	pkghttp.WriteOK(w)
}

// Me returns the authenticated user. Requires the RequireUser middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MeResponse{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified(),
	})
}
