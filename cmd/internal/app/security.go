package app

import (
	"crypto/rand"
	"errors"
	"fmt"

	"newsletter/cmd/security/token"
)

// LoadHMACKey enforces the redirect-signing key policy at startup.
//
// With RequireHMACSecret a missing or short key is fatal. Without it, a
// missing key is replaced by a random per-process key: signed login messages
// then stop verifying after a restart, which only hides the message.
// A key that is set but too short is always fatal.
func LoadHMACKey(cfg Config, log Logger) ([]byte, error) {
	key, err := token.HMACKeyFromEnv(token.MinHMACKeyBytes)
	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, token.ErrHMACKeyMissing) && !cfg.RequireHMACSecret:
		log.Warn("security.hmac_secret.ephemeral", "env", token.HMACEnvKey)
		return ephemeralKey()
	case errors.Is(err, token.ErrHMACKeyMissing):
		return nil, fmt.Errorf("security policy: %sREQUIRE_HMAC_SECRET=true but %s is missing", EnvPrefix, token.HMACEnvKey)
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return nil, fmt.Errorf("security policy: %s is too short (min %d bytes)", token.HMACEnvKey, token.MinHMACKeyBytes)
	default:
		return nil, err
	}
}

func ephemeralKey() ([]byte, error) {
	b := make([]byte, token.MinHMACKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("security: random hmac key: %w", err)
	}
	return b, nil
}
