package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/trafficlens/accounts/internal/auth"
	"github.com/trafficlens/accounts/internal/handlers"
	"github.com/trafficlens/accounts/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	strategy auth.SessionStrategy,
) {
	// Rate limiting for endpoints that check credentials or send mail
	rateLimitConfig := middleware.DefaultAuthRateLimit()
	rateLimited := middleware.RateLimitByIP(rateLimitConfig)

	// Public routes - no authentication required
	router.With(rateLimited).Post("/signup", authHandler.Signup)
	router.With(rateLimited).Post("/login", authHandler.Login)
	router.Post("/logout", authHandler.Logout)

	router.Post("/verify-email", accountHandler.VerifyEmail)
	router.With(rateLimited).Post("/verify-email/resend", accountHandler.ResendVerification)

	router.With(rateLimited).Post("/password/forgot", accountHandler.ForgotPassword)
	router.Post("/password/reset", accountHandler.ResetPassword)

	router.Post("/email/confirm-change", accountHandler.ConfirmEmailChange)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(strategy))

		r.Get("/me", authHandler.Me)
		r.Post("/password/change", accountHandler.ChangePassword)
		r.Post("/email/change", accountHandler.ChangeEmail)
	})
}
