package notifications

import (
	"context"
	"log/slog"
)

// LogNotifier writes emails to the log instead of sending them. Used when no
// provider key is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.log.InfoContext(ctx, "notification.email", "to", msg.To, "subject", msg.Subject)
	return nil
}
