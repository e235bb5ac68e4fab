package middleware

import (
	"context"
	"log/slog"

	"staybook/internal/app/commands"
	"staybook/internal/app/policies"
)

// Lockable is implemented by commands that must not run concurrently for the same key.
type Lockable interface {
	LockKey() string
}

// Serialize holds the command's lock for the whole downstream chain, so place it
// outside Transaction: the lock is released only after commit or rollback.
func Serialize(locker policies.ListingLocker, logger *slog.Logger) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			lockable, ok := cmd.(Lockable)
			if !ok || lockable.LockKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := lockable.LockKey()
			unlock, err := locker.Lock(ctx, key)
			if err != nil {
				return nil, err
			}
			defer func() {
				// release even when the request context is already cancelled
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("lock release failed", "key", key, "error", err)
				}
			}()
			return nextFn(ctx, cmd)
		})
	}
}
