package models

import "errors"

// Sentinel errors for common failure conditions. Handlers branch on these
// with errors.Is to pick status codes; services never return raw pg errors.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrEmailTaken     = errors.New("email already in use")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrInvalidCredentials covers both "no such user" and "wrong password"
	// so the two cases are indistinguishable to a caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid covers unknown, expired and already-redeemed workflow
	// tokens alike.
	ErrTokenInvalid = errors.New("invalid or expired token")
)
