package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficlens/accounts/internal/models"
)

// mockSessionStore implements SessionStore for testing
type mockSessionStore struct {
	CreateFunc              func(ctx context.Context, userID, tokenDigest string, expiresAt time.Time, userAgent, ip string) (*models.Session, error)
	GetByTokenDigestFunc    func(ctx context.Context, tokenDigest string) (*models.Session, error)
	DeleteByTokenDigestFunc func(ctx context.Context, tokenDigest string) error
	DeleteAllForUserFunc    func(ctx context.Context, userID string) error
}

func (m *mockSessionStore) Create(ctx context.Context, userID, tokenDigest string, expiresAt time.Time, userAgent, ip string) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, tokenDigest, expiresAt, userAgent, ip)
	}
	return &models.Session{ID: "session123", UserID: userID, TokenDigest: tokenDigest, ExpiresAt: expiresAt}, nil
}

func (m *mockSessionStore) GetByTokenDigest(ctx context.Context, tokenDigest string) (*models.Session, error) {
	if m.GetByTokenDigestFunc != nil {
		return m.GetByTokenDigestFunc(ctx, tokenDigest)
	}
	return nil, models.ErrNotFound
}

func (m *mockSessionStore) DeleteByTokenDigest(ctx context.Context, tokenDigest string) error {
	if m.DeleteByTokenDigestFunc != nil {
		return m.DeleteByTokenDigestFunc(ctx, tokenDigest)
	}
	return nil
}

func (m *mockSessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	if m.DeleteAllForUserFunc != nil {
		return m.DeleteAllForUserFunc(ctx, userID)
	}
	return nil
}

// mockUserGetter implements UserGetter for testing
type mockUserGetter struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.User, error)
}

func (m *mockUserGetter) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func cookieValue(t *testing.T, rec *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func requestWithCookie(name, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/me", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

// ============================================================================
// DatabaseStrategy
// ============================================================================

func TestDatabaseStrategy_IssueThenAuthenticate(t *testing.T) {
	user := &models.User{ID: "user123", Email: "user@example.com"}

	var storedDigest string
	var storedExpiry time.Time
	store := &mockSessionStore{
		CreateFunc: func(ctx context.Context, userID, tokenDigest string, expiresAt time.Time, userAgent, ip string) (*models.Session, error) {
			assert.Equal(t, "user123", userID)
			assert.Equal(t, "test-agent", userAgent)
			assert.Equal(t, "203.0.113.7", ip)
			storedDigest = tokenDigest
			storedExpiry = expiresAt
			return &models.Session{ID: "session123", UserID: userID, TokenDigest: tokenDigest, ExpiresAt: expiresAt}, nil
		},
		GetByTokenDigestFunc: func(ctx context.Context, tokenDigest string) (*models.Session, error) {
			if tokenDigest == storedDigest {
				return &models.Session{ID: "session123", UserID: "user123", TokenDigest: tokenDigest, ExpiresAt: storedExpiry}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	users := &mockUserGetter{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			require.Equal(t, "user123", id)
			return user, nil
		},
	}

	strategy := NewDatabaseStrategy(store, users, 24*time.Hour, CookieConfig{}, slog.Default())

	rec := httptest.NewRecorder()
	err := strategy.Issue(context.Background(), rec, user, Metadata{UserAgent: "test-agent", IP: "203.0.113.7"})
	require.NoError(t, err)

	rawToken := cookieValue(t, rec, SessionCookie)
	require.NotEmpty(t, rawToken)

	// The stored digest must not be the raw cookie value
	assert.NotEqual(t, rawToken, storedDigest)
	assert.Equal(t, HashToken(rawToken), storedDigest)

	got, err := strategy.Authenticate(context.Background(), httptest.NewRecorder(), requestWithCookie(SessionCookie, rawToken))
	require.NoError(t, err)
	assert.Equal(t, "user123", got.ID)
}

func TestDatabaseStrategy_Authenticate_NoCookie(t *testing.T) {
	strategy := NewDatabaseStrategy(&mockSessionStore{}, &mockUserGetter{}, 24*time.Hour, CookieConfig{}, slog.Default())

	_, err := strategy.Authenticate(context.Background(), httptest.NewRecorder(), requestWithCookie(SessionCookie, ""))

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestDatabaseStrategy_Authenticate_UnknownToken(t *testing.T) {
	strategy := NewDatabaseStrategy(&mockSessionStore{}, &mockUserGetter{}, 24*time.Hour, CookieConfig{}, slog.Default())

	_, err := strategy.Authenticate(context.Background(), httptest.NewRecorder(), requestWithCookie(SessionCookie, "forged-token"))

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestDatabaseStrategy_Authenticate_ExpiredSessionDeletedLazily(t *testing.T) {
	deleted := false
	store := &mockSessionStore{
		GetByTokenDigestFunc: func(ctx context.Context, tokenDigest string) (*models.Session, error) {
			return &models.Session{ID: "session123", UserID: "user123", TokenDigest: tokenDigest,
				ExpiresAt: time.Now().Add(-1 * time.Minute)}, nil
		},
		DeleteByTokenDigestFunc: func(ctx context.Context, tokenDigest string) error {
			deleted = true
			return nil
		},
	}

	strategy := NewDatabaseStrategy(store, &mockUserGetter{}, 24*time.Hour, CookieConfig{}, slog.Default())

	_, err := strategy.Authenticate(context.Background(), httptest.NewRecorder(), requestWithCookie(SessionCookie, "stale-token"))

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.True(t, deleted, "expired session row should be dropped on lookup")
}

func TestDatabaseStrategy_Clear_DeletesRowAndCookie(t *testing.T) {
	var deletedDigest string
	store := &mockSessionStore{
		DeleteByTokenDigestFunc: func(ctx context.Context, tokenDigest string) error {
			deletedDigest = tokenDigest
			return nil
		},
	}

	strategy := NewDatabaseStrategy(store, &mockUserGetter{}, 24*time.Hour, CookieConfig{}, slog.Default())

	rec := httptest.NewRecorder()
	err := strategy.Clear(context.Background(), rec, requestWithCookie(SessionCookie, "some-token"))
	require.NoError(t, err)

	assert.Equal(t, HashToken("some-token"), deletedDigest)

	// Cookie cleared in the response
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestDatabaseStrategy_Clear_WithoutCookieStillSucceeds(t *testing.T) {
	strategy := NewDatabaseStrategy(&mockSessionStore{}, &mockUserGetter{}, 24*time.Hour, CookieConfig{}, slog.Default())

	err := strategy.Clear(context.Background(), httptest.NewRecorder(), requestWithCookie(SessionCookie, ""))

	assert.NoError(t, err)
}

func TestDatabaseStrategy_RevokeAll(t *testing.T) {
	var revokedUser string
	store := &mockSessionStore{
		DeleteAllForUserFunc: func(ctx context.Context, userID string) error {
			revokedUser = userID
			return nil
		},
	}

	strategy := NewDatabaseStrategy(store, &mockUserGetter{}, 24*time.Hour, CookieConfig{}, slog.Default())

	err := strategy.RevokeAll(context.Background(), httptest.NewRecorder(), "user123")

	require.NoError(t, err)
	assert.Equal(t, "user123", revokedUser)
}

// ============================================================================
// StatelessStrategy
// ============================================================================

func newTestStatelessStrategy(users UserGetter) *StatelessStrategy {
	tm := NewTokenManager("test-secret-key-32-characters-ok", "trafficlens", "trafficlens-web",
		15*time.Minute, 7*24*time.Hour)
	return NewStatelessStrategy(tm, users, 15*time.Minute, 7*24*time.Hour, CookieConfig{})
}

func TestStatelessStrategy_IssueThenAuthenticate(t *testing.T) {
	user := &models.User{ID: "user123", Email: "user@example.com"}
	users := &mockUserGetter{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	strategy := newTestStatelessStrategy(users)

	rec := httptest.NewRecorder()
	require.NoError(t, strategy.Issue(context.Background(), rec, user, Metadata{}))

	access := cookieValue(t, rec, AccessCookie)
	refresh := cookieValue(t, rec, RefreshCookie)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	got, err := strategy.Authenticate(context.Background(), httptest.NewRecorder(), requestWithCookie(AccessCookie, access))
	require.NoError(t, err)
	assert.Equal(t, "user123", got.ID)
}

func TestStatelessStrategy_RefreshReissuesPair(t *testing.T) {
	user := &models.User{ID: "user123", Email: "user@example.com"}
	users := &mockUserGetter{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	strategy := newTestStatelessStrategy(users)

	issued := httptest.NewRecorder()
	require.NoError(t, strategy.Issue(context.Background(), issued, user, Metadata{}))
	refresh := cookieValue(t, issued, RefreshCookie)

	// Only the refresh cookie presented, as after access expiry
	rec := httptest.NewRecorder()
	got, err := strategy.Authenticate(context.Background(), rec, requestWithCookie(RefreshCookie, refresh))
	require.NoError(t, err)
	assert.Equal(t, "user123", got.ID)

	// A fresh pair is set on the response
	assert.NotEmpty(t, cookieValue(t, rec, AccessCookie))
	assert.NotEmpty(t, cookieValue(t, rec, RefreshCookie))
}

func TestStatelessStrategy_AccessTokenNotAcceptedAsRefresh(t *testing.T) {
	user := &models.User{ID: "user123", Email: "user@example.com"}
	users := &mockUserGetter{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	strategy := newTestStatelessStrategy(users)

	issued := httptest.NewRecorder()
	require.NoError(t, strategy.Issue(context.Background(), issued, user, Metadata{}))
	access := cookieValue(t, issued, AccessCookie)

	_, err := strategy.Authenticate(context.Background(), httptest.NewRecorder(), requestWithCookie(RefreshCookie, access))

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestStatelessStrategy_Authenticate_NoCookies(t *testing.T) {
	strategy := newTestStatelessStrategy(&mockUserGetter{})

	_, err := strategy.Authenticate(context.Background(), httptest.NewRecorder(), requestWithCookie(AccessCookie, ""))

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestStatelessStrategy_Clear_ClearsBothCookies(t *testing.T) {
	strategy := newTestStatelessStrategy(&mockUserGetter{})

	rec := httptest.NewRecorder()
	require.NoError(t, strategy.Clear(context.Background(), rec, requestWithCookie(AccessCookie, "whatever")))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

// ============================================================================
// RequireUser middleware
// ============================================================================

func TestRequireUser_InjectsUser(t *testing.T) {
	user := &models.User{ID: "user123", Email: "user@example.com"}

	var storedDigest string
	store := &mockSessionStore{
		CreateFunc: func(ctx context.Context, userID, tokenDigest string, expiresAt time.Time, userAgent, ip string) (*models.Session, error) {
			storedDigest = tokenDigest
			return &models.Session{ID: "session123", UserID: userID, TokenDigest: tokenDigest, ExpiresAt: expiresAt}, nil
		},
		GetByTokenDigestFunc: func(ctx context.Context, tokenDigest string) (*models.Session, error) {
			if tokenDigest == storedDigest {
				return &models.Session{ID: "session123", UserID: "user123", ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, models.ErrNotFound
		},
	}
	users := &mockUserGetter{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	strategy := NewDatabaseStrategy(store, users, 24*time.Hour, CookieConfig{}, slog.Default())

	issued := httptest.NewRecorder()
	require.NoError(t, strategy.Issue(context.Background(), issued, user, Metadata{}))
	rawToken := cookieValue(t, issued, SessionCookie)

	handler := RequireUser(strategy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := UserFromContext(r)
		require.NotNil(t, got)
		assert.Equal(t, "user123", got.ID)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithCookie(SessionCookie, rawToken))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireUser_RejectsAnonymous(t *testing.T) {
	strategy := NewDatabaseStrategy(&mockSessionStore{}, &mockUserGetter{}, 24*time.Hour, CookieConfig{}, slog.Default())

	handler := RequireUser(strategy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for anonymous requests")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithCookie(SessionCookie, ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
