package auth

import "errors"

// Sentinel errors for outbound credentials.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrTenantMismatch     = errors.New("auth: token tenant does not match configured tenant")
)
