package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	domainbooking "staybook/internal/domain/booking"
)

func TestNewLocker_Defaults(t *testing.T) {
	l := NewLocker(nil, Options{})
	if l.prefix != "staybook:lock:" || l.ttl != 10*time.Second || l.wait != 3*time.Second || l.retry != 50*time.Millisecond {
		t.Fatalf("unexpected defaults %+v", l)
	}
}

func TestLock_UnreachableServerReturnsError(t *testing.T) {
	client := NewClient(Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	l := NewLocker(client, Options{Wait: 100 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := l.Lock(ctx, "listing:1")
	var pe *domainbooking.PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError from unreachable redis, got %v", err)
	}
	if pe.Op != "acquire lock listing:1" {
		t.Fatalf("unexpected op %q", pe.Op)
	}

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	if _, err := l.Lock(cancelled, "listing:1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
