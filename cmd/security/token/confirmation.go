package token

import (
	"crypto/rand"
	"fmt"
)

const (
	// ConfirmationLength is the number of characters in a confirmation token.
	ConfirmationLength = 25

	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Largest multiple of len(alphanumeric) that fits in a byte; bytes at or
	// above it are discarded so every character is equally likely.
	rejectAbove = 256 - 256%len(alphanumeric)
)

// NewConfirmationToken returns a fresh token drawn uniformly from [A-Za-z0-9].
func NewConfirmationToken() (string, error) {
	out := make([]byte, 0, ConfirmationLength)
	buf := make([]byte, ConfirmationLength*2)

	for len(out) < ConfirmationLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("token: read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == ConfirmationLength {
				break
			}
		}
	}
	return string(out), nil
}

// IsConfirmationToken reports whether s has the shape of a confirmation token.
// It says nothing about whether the token was ever issued.
func IsConfirmationToken(s string) bool {
	if len(s) != ConfirmationLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
