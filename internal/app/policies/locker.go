package policies

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a lock could not be acquired within the configured wait.
var ErrLockTimeout = errors.New("policies: timed out waiting for lock")

// Unlock releases a lock acquired through ListingLocker.
type Unlock func(ctx context.Context) error

// ListingLocker serializes booking creation per listing.
type ListingLocker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}
