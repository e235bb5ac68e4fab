package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/policies"
)

// Outbox buffers records until Flush, then hands them to the notifier in order.
type Outbox struct {
	mu        sync.Mutex
	records   []appoutbox.EventRecord
	delivered []appoutbox.EventRecord
	notifier  policies.Notifier
}

func NewOutbox(notifier policies.Notifier) *Outbox {
	return &Outbox{notifier: notifier}
}

func (o *Outbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	o.records = nil
	o.delivered = append(o.delivered, pending...)
	o.mu.Unlock()

	if o.notifier == nil {
		return nil
	}
	var errs []error
	for _, rec := range pending {
		if err := o.notifier.Notify(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delivered returns every flushed record; used by tests and the dev console.
func (o *Outbox) Delivered() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.delivered...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
