package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsletter/cmd/domain"
	"newsletter/cmd/internal/pgstore"
)

// PostgresStore persists subscribers and tokens in PostgreSQL.
type PostgresStore struct {
	pool           *pgxpool.Pool
	schema         string
	acquireTimeout time.Duration
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "newsletter").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		v, err := pgstore.CheckSchema(schema)
		if err != nil {
			return fmt.Errorf("subscription: %w", err)
		}
		s.schema = v
		return nil
	}
}

// WithAcquireTimeout bounds the wait for a pooled connection.
func WithAcquireTimeout(d time.Duration) StoreOption {
	return func(s *PostgresStore) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		s.acquireTimeout = d
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
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
		return nil, ErrInvalidInput
	}
	return st, nil
}

func (s *PostgresStore) subscriptions() string { return pgstore.Ident(s.schema, "subscriptions") }
func (s *PostgresStore) tokens() string        { return pgstore.Ident(s.schema, "subscription_tokens") }

// Begin acquires a connection (bounded by the acquire timeout) and opens a
// READ COMMITTED transaction on it. The connection is released on Commit or Rollback.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	conn, err := pgstore.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return nil, err
	}
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		conn.Release()
		return nil, err
	}
	return &pgTx{store: s, conn: conn, tx: tx}, nil
}

// SubscriberIDByToken resolves a confirmation token.
func (s *PostgresStore) SubscriberIDByToken(ctx context.Context, token string) (string, error) {
	conn, err := pgstore.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Release()

	var id string
	err = conn.QueryRow(ctx,
		`SELECT subscriber_id FROM `+s.tokens()+` WHERE subscription_token = $1`,
		token,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	return id, nil
}

// ConfirmSubscriber moves the subscriber to confirmed when its current status
// allows it. An unknown id touches nothing and is not an error.
func (s *PostgresStore) ConfirmSubscriber(ctx context.Context, subscriberID string) error {
	conn, err := pgstore.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx,
		`UPDATE `+s.subscriptions()+` SET status = $1 WHERE id = $2 AND status = ANY($3)`,
		string(domain.StatusConfirmed), subscriberID, confirmableStatuses(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.subscriptions()+` WHERE id = $1)`,
		subscriberID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrInvalidTransition
	}
	return nil
}

// confirmableStatuses lists the stored statuses that may move to confirmed.
func confirmableStatuses() []string {
	var out []string
	for _, st := range []domain.Status{domain.StatusPendingConfirmation, domain.StatusConfirmed} {
		if st.CanTransition(domain.StatusConfirmed) {
			out = append(out, string(st))
		}
	}
	return out
}

// ConfirmedSubscribers lists confirmed subscribers ordered by id (creation order).
func (s *PostgresStore) ConfirmedSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	conn, err := pgstore.Acquire(ctx, s.pool, s.acquireTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx,
		`SELECT id, email, name, status, subscribed_at
		   FROM `+s.subscriptions()+`
		  WHERE status = $1
		  ORDER BY id`,
		string(domain.StatusConfirmed),
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Subscriber, error) {
		var (
			sub    domain.Subscriber
			status string
		)
		if err := row.Scan(&sub.ID, &sub.Email, &sub.Name, &status, &sub.SubscribedAt); err != nil {
			return domain.Subscriber{}, err
		}
		sub.Status = domain.Status(status)
		return sub, nil
	})
}

type pgTx struct {
	store    *PostgresStore
	conn     *pgxpool.Conn
	tx       pgx.Tx
	released bool
}

func (t *pgTx) InsertSubscriber(ctx context.Context, in SubscriberRecord) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO `+t.store.subscriptions()+` (id, email, name, status, subscribed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		in.ID, in.Email, in.Name, string(domain.StatusPendingConfirmation), in.SubscribedAt,
	)
	return err
}

func (t *pgTx) InsertToken(ctx context.Context, token, subscriberID string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO `+t.store.tokens()+` (subscription_token, subscriber_id) VALUES ($1, $2)`,
		token, subscriberID,
	)
	if pgstore.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %s: %w", ErrUnknownSubscriber, subscriberID, err)
	}
	return err
}

func (t *pgTx) Commit(ctx context.Context) error {
	defer t.release()
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if t.released {
		return nil
	}
	defer t.release()
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *pgTx) release() {
	if t.released {
		return
	}
	t.released = true
	t.conn.Release()
}
