package notify

import (
	"context"
	"log/slog"
)

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notice) error {
	l.log.WarnContext(ctx, n.Message,
		slog.String("kind", string(n.Kind)),
		slog.String("session_id", n.SessionID),
		slog.Int64("product_id", n.ProductID),
		slog.String("cause", n.Cause),
	)
	return nil
}
