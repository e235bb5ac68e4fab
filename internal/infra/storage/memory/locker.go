package memory

import (
	"context"
	"sync"
	"time"

	"staybook/internal/app/policies"
)

// Locker is an in-process keyed mutex with a bounded wait.
// A key's slot lives only while some caller holds or waits for it.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
	Wait  time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocker(wait time.Duration) *Locker {
	return &Locker{slots: make(map[string]*lockSlot), Wait: wait}
}

func (l *Locker) Lock(ctx context.Context, key string) (policies.Unlock, error) {
	slot := l.acquire(key)

	var timeout <-chan time.Time
	if l.Wait > 0 {
		timer := time.NewTimer(l.Wait)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	case <-timeout:
		l.release(key, slot)
		return nil, policies.ErrLockTimeout
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-slot.ch
			l.release(key, slot)
		})
		return nil
	}, nil
}

// Len reports how many keys currently have a slot.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func (l *Locker) acquire(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *Locker) release(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 && l.slots[key] == slot {
		delete(l.slots, key)
	}
}

var _ policies.ListingLocker = (*Locker)(nil)
