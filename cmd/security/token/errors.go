package token

import "errors"

// Public, stable errors for callers.
var (
	ErrHMACKeyMissing  = errors.New("token HMAC key missing")
	ErrHMACKeyTooShort = errors.New("token HMAC key too short")

	// ErrInvalidSignature covers both a malformed tag and a tag mismatch.
	ErrInvalidSignature = errors.New("token signature invalid")
)
