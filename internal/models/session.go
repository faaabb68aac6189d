package models

import (
	"time"
)

// Session is a server-side login record, keyed by the sha256 digest of the
// opaque cookie token. Only the database session strategy creates these;
// the stateless strategy keeps no server record.
type Session struct {
	ID          string
	UserID      string
	TokenDigest string
	ExpiresAt   time.Time
	UserAgent   string
	IP          string
	CreatedAt   time.Time
}

// IsExpired checks the session against the given instant. Expiry is
// exclusive: a session whose ExpiresAt equals now is already dead.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
