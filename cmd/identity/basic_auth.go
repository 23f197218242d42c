package identity

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"newsletter/cmd/internal/fault"
)

// Credentials is a username/password pair presented by a caller.
type Credentials struct {
	Username string
	Password string
}

// String omits the password.
func (c Credentials) String() string {
	return "Credentials{Username:" + c.Username + "}"
}

// ParseBasicAuth decodes an Authorization header using the Basic scheme.
// Every failure is an authentication-kind error.
func ParseBasicAuth(header string) (Credentials, error) {
	const op = "identity.ParseBasicAuth"

	if header == "" {
		return Credentials{}, fault.Authentication(op, "The 'Authorization' header was missing", nil)
	}
	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return Credentials{}, fault.Authentication(op, "The authorization scheme was not 'Basic'", nil)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return Credentials{}, fault.Authentication(op, "Failed to base64-decode 'Basic' credentials", err)
	}
	if !utf8.Valid(raw) {
		return Credentials{}, fault.Authentication(op, "The decoded credential string is not valid UTF-8", nil)
	}

	username, pw, ok := strings.Cut(string(raw), ":")
	if username == "" {
		return Credentials{}, fault.Authentication(op, "A username must be provided in 'Basic' auth", nil)
	}
	if !ok || pw == "" {
		return Credentials{}, fault.Authentication(op, "A password must be provided in 'Basic' auth", nil)
	}
	return Credentials{Username: username, Password: pw}, nil
}
