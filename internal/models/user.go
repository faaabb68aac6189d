package models

import (
	"time"
)

// User is the root account record. The three pending-token slots
// (verify / reset / email change) each hold a sha256 digest of the raw
// token plus an expiry, and are either fully set or fully null.
type User struct {
	ID              string
	Email           string
	PasswordHash    string
	EmailVerifiedAt *time.Time

	EmailVerifyHash    *string
	EmailVerifyExpires *time.Time

	ResetHash    *string
	ResetExpires *time.Time

	PendingEmail       *string
	EmailChangeHash    *string
	EmailChangeExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmailVerified reports whether the account's current email has been
// confirmed. Verification is advisory: unverified users can still log in.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}
