package email

import (
	"context"
	"log/slog"
)

// LogSender logs messages instead of delivering them. Used in development
// when no transport credentials are configured, so confirmation links remain
// visible in the process output.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email send (log transport)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}
