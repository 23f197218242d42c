package email

import (
	"context"
	"log/slog"
)

// LogSender records messages in the log instead of delivering them.
// Bodies are logged because dev mode has no other way to reach the confirm link.
type LogSender struct {
	log *slog.Logger
}

// NewLogSender returns a LogSender writing to log (slog.Default when nil).
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.InfoContext(ctx, "email.log_sender.send",
		"to", msg.To.Redacted(),
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}
