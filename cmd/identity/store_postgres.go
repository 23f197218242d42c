package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsletter/cmd/internal/pgstore"
)

// PostgresStore implements credential persistence over PostgreSQL.
//
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool           *pgxpool.Pool
	schema         string
	acquireTimeout time.Duration
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema used by the store (default "newsletter").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		v, err := pgstore.CheckSchema(schema)
		if err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		s.schema = v
		return nil
	}
}

// WithAcquireTimeout bounds the wait for a pooled connection.
func WithAcquireTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) error {
		if d <= 0 {
			return fmt.Errorf("identity: acquire timeout must be positive")
		}
		s.acquireTimeout = d
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:           pool,
		schema:         pgstore.DefaultSchema,
		acquireTimeout: pgstore.DefaultAcquireTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// InsertCredential stores c; a taken username maps to ConflictError.
func (s *PostgresStore) InsertCredential(ctx context.Context, c Credential) error {
	const op = "identity.InsertCredential"

	if c.UserID == "" || c.Username == "" || c.passwordHash == "" {
		return invalid(op, "incomplete credential")
	}

	conn, err := pgstore.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return err
	}
	defer conn.Release()

	now := c.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err = conn.Exec(ctx,
		`INSERT INTO `+pgstore.Ident(s.schema, "users")+` (user_id, username, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		c.UserID, c.Username, c.passwordHash, now,
	)
	if err != nil {
		if _, ok := pgstore.IsUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: "username"}
		}
		return err
	}
	return nil
}

// CredentialByUsername returns the credential for an exact username match.
func (s *PostgresStore) CredentialByUsername(ctx context.Context, username string) (Credential, error) {
	const op = "identity.CredentialByUsername"

	conn, err := pgstore.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return Credential{}, err
	}
	defer conn.Release()

	var c Credential
	err = conn.QueryRow(ctx,
		`SELECT user_id, username, password_hash, created_at
		   FROM `+pgstore.Ident(s.schema, "users")+`
		  WHERE username = $1`,
		username,
	).Scan(&c.UserID, &c.Username, &c.passwordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, NotFoundError{Op: op, Resource: "credential"}
		}
		return Credential{}, err
	}
	return c, nil
}
