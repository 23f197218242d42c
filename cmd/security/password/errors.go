package password

import "errors"

// Provisioning rejections. None of them echo the password.
var (
	ErrPasswordTooShort    = errors.New("password: shorter than the configured minimum")
	ErrPasswordTooLong     = errors.New("password: longer than the configured maximum")
	ErrPasswordEncoding    = errors.New("password: not valid UTF-8")
	ErrPasswordControlChar = errors.New("password: contains control characters")
)

// ErrInvalidHash covers stored hashes that are malformed, use another
// algorithm or version, or exceed the verify cost bounds.
var ErrInvalidHash = errors.New("password: invalid argon2id hash")
