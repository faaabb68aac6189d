//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/trafficlens/accounts/internal/auth"
	"github.com/trafficlens/accounts/internal/database"
	"github.com/trafficlens/accounts/internal/handlers"
	"github.com/trafficlens/accounts/internal/repositories"
	"github.com/trafficlens/accounts/internal/routes"
	"github.com/trafficlens/accounts/internal/services"
	pkghttp "github.com/trafficlens/accounts/pkg/http"
)

// CapturedEmail records one outbound message
type CapturedEmail struct {
	Kind  string // "verify", "reset", "email_change"
	To    string
	Token string
}

// MockEmailService captures sent emails so tests can pull raw tokens out of
// the "mailbox" instead of hitting SES.
type MockEmailService struct {
	mu     sync.Mutex
	Emails []CapturedEmail
}

func (m *MockEmailService) record(kind, email, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emails = append(m.Emails, CapturedEmail{Kind: kind, To: email, Token: token})
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.record("verify", email, token)
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.record("reset", email, token)
	return nil
}

func (m *MockEmailService) SendEmailChangeEmail(ctx context.Context, email, token string) error {
	m.record("email_change", email, token)
	return nil
}

// LastToken returns the token from the most recent email of the given kind
func (m *MockEmailService) LastToken(kind string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Emails) - 1; i >= 0; i-- {
		if m.Emails[i].Kind == kind {
			return m.Emails[i].Token
		}
	}
	return ""
}

// TestServer wraps httptest.Server with a real database and mocked email
type TestServer struct {
	Server *httptest.Server
	DB     *database.DB
	Email  *MockEmailService
}

// NewTestServer wires the full HTTP stack against the given database using
// the database session strategy.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)

	strategy := auth.NewDatabaseStrategy(sessionRepo, userRepo, 24*time.Hour, auth.CookieConfig{}, logger)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{})
	mailer := &MockEmailService{}

	authService := services.NewAuthService(userRepo, mailer, timingDelay, logger, 24*time.Hour)
	verificationService := services.NewVerificationService(userRepo, mailer, logger, 24*time.Hour)
	passwordService := services.NewPasswordService(userRepo, mailer, logger, 30*time.Minute)
	emailChangeService := services.NewEmailChangeService(userRepo, mailer, logger, 1*time.Hour)

	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, strategy, ipConfig)
	accountHandler := handlers.NewAccountHandler(verificationService, passwordService, emailChangeService, strategy)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	routes.RegisterRoutes(router, authHandler, accountHandler, strategy)

	return &TestServer{
		Server: httptest.NewServer(router),
		DB:     db,
		Email:  mailer,
	}
}

func (ts *TestServer) Close() {
	ts.Server.Close()
}

// Client is an HTTP client with a cookie jar, standing in for one browser
type Client struct {
	http    *http.Client
	baseURL string
}

func (ts *TestServer) NewClient() *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		http:    &http.Client{Jar: jar},
		baseURL: ts.Server.URL,
	}
}

// PostJSON sends a JSON POST and returns the response
func (c *Client) PostJSON(path string, body interface{}) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// Get sends a GET and returns the response
func (c *Client) Get(path string) (*http.Response, error) {
	return c.http.Get(c.baseURL + path)
}

// DecodeJSON decodes a response body into target and closes it
func DecodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
