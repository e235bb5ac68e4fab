package policies

import (
	"context"

	"staybook/internal/app/outbox"
)

// Notifier delivers committed lifecycle events to interested parties.
type Notifier interface {
	Notify(ctx context.Context, event outbox.EventRecord) error
}
