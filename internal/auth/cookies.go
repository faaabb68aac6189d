package auth

import (
	"net/http"
	"time"
)

// Cookie names. The database strategy uses only SessionCookie; the stateless
// strategy uses the access/refresh pair.
const (
	SessionCookie = "session_token"
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// CookieConfig holds the shared cookie attributes. All auth cookies are
// httpOnly, SameSite=Lax and scoped to path /.
type CookieConfig struct {
	Secure bool // HTTPS only; set in production
}

func SetAuthCookie(w http.ResponseWriter, name, value string, ttl time.Duration, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearAuthCookie(w http.ResponseWriter, name string, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetCookie returns the named cookie value, or "" when absent.
func GetCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
