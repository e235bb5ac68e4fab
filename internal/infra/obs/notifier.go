package obs

import (
	"context"
	"log/slog"

	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
)

// LogNotifier reports lifecycle events to the log; memory mode uses it in place of Kafka.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, event outbox.EventRecord) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "booking event",
		"event", event.Name,
		"aggregate", event.Aggregate,
		"id", event.ID,
		"occurred_at", event.OccurredAt,
	)
	return nil
}

var _ policies.Notifier = LogNotifier{}
