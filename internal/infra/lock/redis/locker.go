package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"staybook/internal/app/policies"
	domainbooking "staybook/internal/domain/booking"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker is a single-instance Redis lock for deployments running several API replicas.
type Locker struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
	Wait     time.Duration
	Retry    time.Duration
}

func NewClient(opts Options) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func NewLocker(client *goredis.Client, opts Options) *Locker {
	l := &Locker{client: client, prefix: opts.Prefix, ttl: opts.TTL, wait: opts.Wait, retry: opts.Retry}
	if l.prefix == "" {
		l.prefix = "staybook:lock:"
	}
	if l.ttl <= 0 {
		l.ttl = 10 * time.Second
	}
	if l.wait <= 0 {
		l.wait = 3 * time.Second
	}
	if l.retry <= 0 {
		l.retry = 50 * time.Millisecond
	}
	return l
}

// Lock polls SET NX until it succeeds or Wait elapses.
func (l *Locker) Lock(ctx context.Context, key string) (policies.Unlock, error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, domainbooking.Persistence("acquire lock "+key, err)
		}
		if ok {
			return l.unlocker(redisKey, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, policies.ErrLockTimeout
		case <-time.After(l.retry):
		}
	}
}

func (l *Locker) unlocker(redisKey, token string) policies.Unlock {
	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return fmt.Errorf("redis unlock: %w", err)
		}
		return nil
	}
}

func (l *Locker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

var _ policies.ListingLocker = (*Locker)(nil)
