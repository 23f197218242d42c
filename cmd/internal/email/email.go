// Package email delivers transactional messages through a configured provider.
//
// Backends:
//   - Client: JSON POST to {base}/send with HTTP Basic auth
//   - SESSender: AWS SES v2 SendEmail with simple content
//   - LogSender: logs the message instead of sending it (dev mode)
//
// No backend retries. A failed send is returned to the caller as is.
package email

import (
	"context"

	"newsletter/cmd/domain"
)

// Message is one outbound email.
type Message struct {
	To      domain.SubscriberEmail
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
