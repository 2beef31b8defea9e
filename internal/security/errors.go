package security

import "errors"

// Token validation failure kinds. Exactly one is returned by Validate.
var (
	ErrInvalidSignature = errors.New("security: token signature invalid")
	ErrExpired          = errors.New("security: token expired")
	ErrMalformed        = errors.New("security: token malformed")
)

// ErrInvalidConfig is returned when the token or hasher configuration cannot be used.
var ErrInvalidConfig = errors.New("security: invalid configuration")
