package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"newsletter/cmd/ids"
	"newsletter/cmd/security/password"
)

const maxUsernameLen = 64

// ProvisionInput describes a publisher account to create.
type ProvisionInput struct {
	Username string
	Password string
	Now      time.Time
}

// NewCredential validates in and hashes its password with cfg.
// The password policy applies here and never at verification time.
func NewCredential(cfg password.Config, in ProvisionInput) (Credential, error) {
	const op = "identity.NewCredential"

	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		return Credential{}, invalid(op, "username is required")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return Credential{}, invalid(op, "username too long")
	case strings.Contains(username, ":"):
		// Basic auth splits on the first colon.
		return Credential{}, invalid(op, "username must not contain ':'")
	}

	hash, err := cfg.Hash(in.Password)
	if err != nil {
		return Credential{}, invalid(op, err.Error())
	}

	id, err := ids.NewUUID()
	if err != nil {
		return Credential{}, fmt.Errorf("%s: user id: %w", op, err)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return Credential{
		UserID:       id,
		Username:     username,
		CreatedAt:    now,
		passwordHash: hash,
	}, nil
}

// Provision creates and stores a credential.
func Provision(ctx context.Context, s Store, cfg password.Config, in ProvisionInput) (Credential, error) {
	c, err := NewCredential(cfg, in)
	if err != nil {
		return Credential{}, err
	}
	if err := s.InsertCredential(ctx, c); err != nil {
		return Credential{}, err
	}
	return c, nil
}
