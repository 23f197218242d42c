package subscription

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"newsletter/cmd/domain"
	"newsletter/cmd/ids"
	"newsletter/cmd/internal/email"
	"newsletter/cmd/internal/fault"
	"newsletter/cmd/security/token"
)

// ConfirmPath is the route serving confirmation links.
const ConfirmPath = "/newsletters/subscriptions/confirm"

// TokenQueryKey is the confirmation link's query parameter.
const TokenQueryKey = "subscription_token"

// Service runs the subscribe and confirm workflows.
type Service struct {
	store     Store
	sender    email.Sender
	baseURL   string
	templates *Templates
	log       *slog.Logger
	now       func() time.Time
	newToken  func() (string, error)
}

// Option configures the Service.
type Option func(*Service) error

// WithTemplates overrides the confirmation email templates.
func WithTemplates(t *Templates) Option {
	return func(s *Service) error {
		if t == nil {
			return ErrInvalidInput
		}
		s.templates = t
		return nil
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) error {
		if l == nil {
			return ErrInvalidInput
		}
		s.log = l
		return nil
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// WithTokenGenerator overrides confirmation token generation.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) error {
		if gen == nil {
			return ErrInvalidInput
		}
		s.newToken = gen
		return nil
	}
}

// NewService constructs a Service. baseURL prefixes confirmation links.
func NewService(store Store, sender email.Sender, baseURL string, opts ...Option) (*Service, error) {
	if store == nil || sender == nil {
		return nil, ErrInvalidInput
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil || baseURL == "" {
		return nil, ErrInvalidInput
	}

	s := &Service{
		store:     store,
		sender:    sender,
		baseURL:   baseURL,
		templates: DefaultTemplates(),
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newToken:  token.NewConfirmationToken,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ConfirmationLink returns the link sent for tok.
func (s *Service) ConfirmationLink(tok string) string {
	return s.baseURL + ConfirmPath + "?" + url.Values{TokenQueryKey: []string{tok}}.Encode()
}

// Subscribe registers a pending subscriber and emails its confirmation link.
// It returns the new subscriber id.
//
// Errors:
//   - validation kind: name or email rejected (nothing is stored)
//   - unexpected kind: any store, token or email failure
//
// A failure to send happens after commit: the rows remain and no resend is scheduled.
func (s *Service) Subscribe(ctx context.Context, rawName, rawEmail string) (string, error) {
	ns, err := domain.ParseNewSubscriber(rawName, rawEmail)
	if err != nil {
		return "", err
	}

	id, tok, err := s.insert(ctx, ns)
	if err != nil {
		return "", err
	}

	if err := s.sendConfirmation(ctx, ns, tok); err != nil {
		s.log.WarnContext(ctx, "subscription.confirmation_email.fail",
			"subscriber_id", id,
			"email", ns.Email.Redacted(),
			"err", err,
		)
		return id, err
	}
	return id, nil
}

func (s *Service) insert(ctx context.Context, ns domain.NewSubscriber) (id, tok string, err error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return "", "", fault.Unexpected("subscription.begin_transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := s.now()
	id, err = ids.NewULID(now)
	if err != nil {
		return "", "", fault.Unexpected("subscription.new_subscriber_id", err)
	}

	err = tx.InsertSubscriber(ctx, SubscriberRecord{
		ID:           id,
		Email:        ns.Email.String(),
		Name:         ns.Name.String(),
		SubscribedAt: now,
	})
	if err != nil {
		return "", "", fault.Unexpected("subscription.insert_subscriber", err)
	}

	tok, err = s.newToken()
	if err != nil {
		return "", "", fault.Unexpected("subscription.generate_token", err)
	}
	if err := tx.InsertToken(ctx, tok, id); err != nil {
		return "", "", fault.Unexpected("subscription.store_token", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", fault.Unexpected("subscription.commit", err)
	}
	return id, tok, nil
}

func (s *Service) sendConfirmation(ctx context.Context, ns domain.NewSubscriber, tok string) error {
	r, err := s.templates.Render(ns.Name.String(), s.ConfirmationLink(tok))
	if err != nil {
		return fault.Unexpected("subscription.render_confirmation_email", err)
	}
	err = s.sender.Send(ctx, email.Message{
		To:      ns.Email,
		Subject: r.Subject,
		HTML:    r.HTML,
		Text:    r.Text,
	})
	if err != nil {
		return fault.Unexpected("subscription.send_confirmation_email", err)
	}
	return nil
}

// Confirm marks the subscriber owning tok as confirmed.
//
// Errors:
//   - validation kind: tok is empty
//   - authentication kind: tok was never issued
//   - unexpected kind: store failure
func (s *Service) Confirm(ctx context.Context, tok string) error {
	const op = "subscription.Confirm"

	if tok == "" {
		return fault.Validation(op, "Missing subscription_token query parameter.")
	}
	// Anything not shaped like an issued token cannot exist in the store.
	if !token.IsConfirmationToken(tok) {
		return fault.Authentication(op, "unknown subscription token", ErrTokenNotFound)
	}

	id, err := s.store.SubscriberIDByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return fault.Authentication(op, "unknown subscription token", err)
		}
		return fault.Unexpected("subscription.lookup_token", err)
	}

	if err := s.store.ConfirmSubscriber(ctx, id); err != nil {
		return fault.Unexpected("subscription.confirm_subscriber", err)
	}
	return nil
}
