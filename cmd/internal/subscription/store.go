package subscription

import (
	"context"
	"time"

	"newsletter/cmd/domain"
)

// SubscriberRecord is a normalized subscriber insert payload.
type SubscriberRecord struct {
	ID           string
	Email        string
	Name         string
	SubscribedAt time.Time
}

// Store is the persistence boundary for subscribers and their tokens.
type Store interface {
	// Begin opens a transaction for the insert-subscriber + insert-token pair.
	Begin(ctx context.Context) (Tx, error)

	// SubscriberIDByToken returns the owner of token or ErrTokenNotFound.
	SubscriberIDByToken(ctx context.Context, token string) (string, error)

	// ConfirmSubscriber sets status to confirmed. Already confirmed is not an error;
	// a status that cannot move forward yields ErrInvalidTransition.
	ConfirmSubscriber(ctx context.Context, subscriberID string) error

	// ConfirmedSubscribers lists confirmed subscribers in a stable order.
	// Emails are returned as stored and may no longer parse.
	ConfirmedSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// Tx is one open subscription transaction.
// Rollback after Commit is a no-op.
type Tx interface {
	InsertSubscriber(ctx context.Context, in SubscriberRecord) error
	InsertToken(ctx context.Context, token, subscriberID string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
