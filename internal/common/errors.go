// Package common defines the sentinel errors shared by every layer of the
// community backend. Callers match them with errors.Is; the HTTP boundary
// switches on them to pick a response status, so the core never deals in
// status codes itself.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Input errors (caller can correct and retry).
	ErrValidation        = errors.New("validation error")
	ErrDuplicateEmail    = errors.New("email already in use")
	ErrDuplicateNickname = errors.New("nickname already in use")
	ErrSamePassword      = errors.New("new password must differ from the current one")

	// Credential errors. ErrInvalidCredentials is deliberately uninformative:
	// an unknown email and a wrong password produce the same value so callers
	// cannot probe which accounts exist. ErrInvalidToken means the presented
	// token failed signature or expiry checks (tampering or staleness).
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")

	// Infrastructure errors. ErrStoreUnavailable marks connection-pool or
	// transaction failures; it is never converted into a business error.
	ErrStoreUnavailable = errors.New("store unavailable")
)
