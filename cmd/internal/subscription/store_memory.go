package subscription

import (
	"context"
	"errors"
	"sync"

	"newsletter/cmd/domain"
)

// Memory store steps that can be made to fail with FailOn.
const (
	StepBegin            = "begin"
	StepInsertSubscriber = "insert_subscriber"
	StepInsertToken      = "insert_token"
	StepCommit           = "commit"
	StepLookupToken      = "lookup_token"
	StepConfirm          = "confirm"
	StepListConfirmed    = "list_confirmed"
)

// MemoryStore is an in-process Store for dev mode and tests.
// Transaction writes are staged and only become visible on Commit.
type MemoryStore struct {
	mu     sync.Mutex
	order  []string
	subs   map[string]domain.Subscriber
	tokens map[string]string
	fail   map[string]error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:   make(map[string]domain.Subscriber),
		tokens: make(map[string]string),
		fail:   make(map[string]error),
	}
}

// FailOn makes step return err until cleared with a nil err.
func (s *MemoryStore) FailOn(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, step)
		return
	}
	s.fail[step] = err
}

func (s *MemoryStore) failure(step string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[step]
}

// Put stores sub directly, bypassing validation. It exists to seed legacy rows.
func (s *MemoryStore) Put(sub domain.Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub.ID]; !ok {
		s.order = append(s.order, sub.ID)
	}
	s.subs[sub.ID] = sub
}

// Subscribers returns every committed subscriber in insertion order.
func (s *MemoryStore) Subscribers() []domain.Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Subscriber, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.subs[id])
	}
	return out
}

// TokensFor returns every committed token owned by subscriberID.
func (s *MemoryStore) TokensFor(subscriberID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for tok, owner := range s.tokens {
		if owner == subscriberID {
			out = append(out, tok)
		}
	}
	return out
}

func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.failure(StepBegin); err != nil {
		return nil, err
	}
	return &memoryTx{store: s, tokens: make(map[string]string)}, nil
}

func (s *MemoryStore) SubscriberIDByToken(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.failure(StepLookupToken); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return "", ErrTokenNotFound
	}
	return id, nil
}

func (s *MemoryStore) ConfirmSubscriber(ctx context.Context, subscriberID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.failure(StepConfirm); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[subscriberID]
	if !ok {
		// Matches an UPDATE touching zero rows.
		return nil
	}
	if !sub.Status.CanTransition(domain.StatusConfirmed) {
		return ErrInvalidTransition
	}
	sub.Status = domain.StatusConfirmed
	s.subs[subscriberID] = sub
	return nil
}

func (s *MemoryStore) ConfirmedSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.failure(StepListConfirmed); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Subscriber
	for _, id := range s.order {
		if sub := s.subs[id]; sub.Status == domain.StatusConfirmed {
			out = append(out, sub)
		}
	}
	return out, nil
}

type memoryTx struct {
	store  *MemoryStore
	subs   []domain.Subscriber
	tokens map[string]string
	done   bool
}

var errTxDone = errors.New("subscription: transaction already closed")

func (t *memoryTx) InsertSubscriber(ctx context.Context, in SubscriberRecord) error {
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.store.failure(StepInsertSubscriber); err != nil {
		return err
	}
	if in.ID == "" {
		return ErrInvalidInput
	}
	t.subs = append(t.subs, domain.Subscriber{
		ID:           in.ID,
		Email:        in.Email,
		Name:         in.Name,
		Status:       domain.StatusPendingConfirmation,
		SubscribedAt: in.SubscribedAt,
	})
	return nil
}

func (t *memoryTx) InsertToken(ctx context.Context, token, subscriberID string) error {
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.store.failure(StepInsertToken); err != nil {
		return err
	}
	if token == "" || subscriberID == "" {
		return ErrInvalidInput
	}
	if !t.hasSubscriber(subscriberID) {
		return ErrUnknownSubscriber
	}
	t.tokens[token] = subscriberID
	return nil
}

// hasSubscriber checks staged rows first, then committed ones.
func (t *memoryTx) hasSubscriber(id string) bool {
	for _, sub := range t.subs {
		if sub.ID == id {
			return true
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	_, ok := t.store.subs[id]
	return ok
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	if err := t.store.failure(StepCommit); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range t.subs {
		if _, ok := s.subs[sub.ID]; !ok {
			s.order = append(s.order, sub.ID)
		}
		s.subs[sub.ID] = sub
	}
	for tok, owner := range t.tokens {
		s.tokens[tok] = owner
	}
	return nil
}

func (t *memoryTx) Rollback(context.Context) error {
	t.done = true
	return nil
}
