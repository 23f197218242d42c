package token

import (
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the redirect-signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "NEWSLETTER_HMAC_SECRET"

	// MinHMACKeyBytes is the enforced minimum secret size.
	MinHMACKeyBytes = 32
)

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	return ParseHMACKey(os.Getenv(HMACEnvKey), minBytes)
}

// ParseHMACKey applies the HMACKeyFromEnv rules to an already-loaded value.
func ParseHMACKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}
