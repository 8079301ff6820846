// internal/services/locker.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when another instance holds the user's recompute lock.
var ErrLockNotAcquired = errors.New("recompute already running for user")

// Locker serializes global recomputes per user across instances.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type noopLocker struct{}

// NewNoopLocker returns a Locker that always succeeds; used when redis is not configured.
func NewNoopLocker() Locker { return noopLocker{} }

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

type redisLocker struct {
	rdb       redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	wait      time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) Locker {
	return &redisLocker{rdb: rdb, keyPrefix: "cardswap:lock:", ttl: ttl, wait: ttl}
}

// Acquire retries SET NX with capped exponential backoff until the wait budget runs out.
func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.keyPrefix + key
	value := uuid.New().String()
	deadline := time.Now().Add(l.wait)
	delay := 10 * time.Millisecond

	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, value, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// The lock expires on its own if this fails.
				_ = releaseScript.Run(context.Background(), l.rdb, []string{lockKey}, value).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if delay > 500*time.Millisecond {
				delay = 500 * time.Millisecond
			}
		}
	}
}
