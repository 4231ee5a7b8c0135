package mail

import (
	"context"
	"log/slog"
)

// LogSender logs messages instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With(slog.String("component", "log_sender"))}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email",
		slog.String("from", msg.From),
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.HTML))
	return nil
}
