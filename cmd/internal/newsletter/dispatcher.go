// Package newsletter fans a published issue out to confirmed subscribers.
//
// Sends are sequential in store order. The first failed send aborts the run;
// recipients already mailed are not recorded, so a retried publish mails
// them again.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"newsletter/cmd/domain"
	"newsletter/cmd/internal/email"
	"newsletter/cmd/internal/fault"
)

var ErrInvalidInput = errors.New("newsletter: invalid input")

// SubscriberLister lists confirmed subscribers.
type SubscriberLister interface {
	ConfirmedSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// Issue is one newsletter to publish.
type Issue struct {
	Title string
	HTML  string
	Text  string
}

// Report summarizes a completed publish.
type Report struct {
	Sent    int
	Skipped int
}

// Dispatcher sends issues to every confirmed subscriber.
type Dispatcher struct {
	subscribers SubscriberLister
	sender      email.Sender
	log         *slog.Logger
}

// NewDispatcher wires a Dispatcher. log defaults to slog.Default.
func NewDispatcher(subscribers SubscriberLister, sender email.Sender, log *slog.Logger) (*Dispatcher, error) {
	if subscribers == nil || sender == nil {
		return nil, ErrInvalidInput
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{subscribers: subscribers, sender: sender, log: log}, nil
}

// Validate rejects issues with no title or no body.
func (i Issue) Validate() error {
	const op = "newsletter.Issue"

	switch {
	case strings.TrimSpace(i.Title) == "":
		return fault.Validation(op, "The newsletter title is missing.")
	case strings.TrimSpace(i.HTML) == "" || strings.TrimSpace(i.Text) == "":
		return fault.Validation(op, "The newsletter content is missing.")
	}
	return nil
}

// Publish mails issue to every confirmed subscriber whose stored email still parses.
//
// Errors:
//   - validation kind: issue is incomplete
//   - unexpected kind: listing failed, or a send failed (the run stops there)
func (d *Dispatcher) Publish(ctx context.Context, issue Issue) (Report, error) {
	var rep Report

	if err := issue.Validate(); err != nil {
		return rep, err
	}

	subs, err := d.subscribers.ConfirmedSubscribers(ctx)
	if err != nil {
		return rep, fault.Unexpected("newsletter.list_confirmed_subscribers", err)
	}

	for _, sub := range subs {
		to, err := domain.ParseSubscriberEmail(sub.Email)
		if err != nil {
			// The parse error echoes the raw address; log the redacted form only.
			rep.Skipped++
			d.log.WarnContext(ctx, "newsletter.publish.skip_invalid_email",
				"subscriber_id", sub.ID,
				"email", domain.RedactEmail(sub.Email),
			)
			continue
		}

		err = d.sender.Send(ctx, email.Message{
			To:      to,
			Subject: issue.Title,
			HTML:    issue.HTML,
			Text:    issue.Text,
		})
		if err != nil {
			return rep, fault.Unexpected(
				"newsletter.send_issue",
				fmt.Errorf("failed to send newsletter issue to %s: %w", to.Redacted(), err),
			)
		}
		rep.Sent++
	}
	return rep, nil
}
