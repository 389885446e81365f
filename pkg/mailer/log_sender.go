package mailer

import (
	"context"
	"log/slog"
)

// logSender implements Sender for development: messages are logged instead
// of delivered.
type logSender struct {
	logger *slog.Logger
}

// NewLogSender creates a Sender that writes messages to the logger.
// A nil logger falls back to slog.Default().
func NewLogSender(logger *slog.Logger) Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &logSender{logger: logger}
}

func (s *logSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "email (not sent, dev mode)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("tag", msg.Tag))
	return nil
}
