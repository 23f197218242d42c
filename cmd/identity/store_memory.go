package identity

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for dev mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byName map[string]Credential

	// lookups counts CredentialByUsername calls.
	lookups int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byName: make(map[string]Credential)}
}

func (s *MemoryStore) InsertCredential(ctx context.Context, c Credential) error {
	const op = "identity.InsertCredential"

	if err := ctx.Err(); err != nil {
		return err
	}
	if c.UserID == "" || c.Username == "" || c.passwordHash == "" {
		return invalid(op, "incomplete credential")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[c.Username]; ok {
		return ConflictError{Op: op, Field: "username"}
	}
	s.byName[c.Username] = c
	return nil
}

func (s *MemoryStore) CredentialByUsername(ctx context.Context, username string) (Credential, error) {
	const op = "identity.CredentialByUsername"

	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups++
	c, ok := s.byName[username]
	if !ok {
		return Credential{}, NotFoundError{Op: op, Resource: "credential"}
	}
	return c, nil
}

// Lookups returns how many times CredentialByUsername ran.
func (s *MemoryStore) Lookups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookups
}
