package identity

import (
	"context"
	"fmt"

	"newsletter/cmd/internal/fault"
	"newsletter/cmd/security/password"
)

// Verifier checks presented credentials against the store.
//
// Unknown usernames are verified against a dummy hash built with the same
// Argon2id parameters, so both rejection paths cost one hash computation.
type Verifier struct {
	store     Store
	pool      *password.Pool
	dummyHash string
}

// NewVerifier builds a Verifier. Hash work runs on pool.
func NewVerifier(store Store, pool *password.Pool) (*Verifier, error) {
	if store == nil {
		return nil, fmt.Errorf("identity: nil store")
	}
	if pool == nil {
		return nil, fmt.Errorf("identity: nil password pool")
	}
	dummy, err := pool.Config().DummyHash()
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	return &Verifier{store: store, pool: pool, dummyHash: dummy}, nil
}

// Validate returns the user id owning c.
//
// Errors:
//   - authentication kind: unknown username or wrong password
//   - unexpected kind: store or hash faults
func (v *Verifier) Validate(ctx context.Context, c Credentials) (string, error) {
	const op = "identity.Validate"

	known := true
	hash := v.dummyHash

	cred, err := v.store.CredentialByUsername(ctx, c.Username)
	switch {
	case err == nil:
		hash = cred.passwordHash
	case IsNotFound(err):
		known = false
	default:
		return "", fault.Unexpected(op+".lookup_credential", err)
	}

	ok, err := v.pool.Verify(ctx, hash, c.Password)
	if err != nil {
		return "", fault.Unexpected(op+".verify_password_hash", err)
	}
	if !known {
		return "", fault.Authentication(op, "Unknown username", nil)
	}
	if !ok {
		return "", fault.Authentication(op, "Invalid password", nil)
	}
	return cred.UserID, nil
}
