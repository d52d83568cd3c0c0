package email

import (
	"context"
	"log/slog"
)

// LogSender writes messages to a logger instead of delivering them. It
// logs addresses, and bodies at debug level, so it is for development only.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return TransportErr(err)
	}

	s.logger.InfoContext(ctx, "send email",
		"from", msg.From,
		"to", msg.To,
		"subject", msg.Subject,
		"textBytes", len(msg.TextBody),
		"htmlBytes", len(msg.HTMLBody),
	)
	s.logger.DebugContext(ctx, "email body", "to", msg.To, "text", msg.TextBody, "html", msg.HTMLBody)

	return nil
}
