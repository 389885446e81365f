package redislock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lumeoai/lumeo/pkg/subscription"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lease can never release a lock acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements subscription.Locker as a Redis lease, serializing
// per-user mutations across service instances. Leases auto-expire after TTL
// so a crashed holder cannot wedge a user forever.
type Locker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	keyPrefix  string
}

// Option configures a Locker.
type Option func(*Locker)

// WithTTL sets the lease lifetime. Must exceed the longest critical section.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryDelay sets the pause between acquisition attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retryDelay = d
		}
	}
}

// WithKeyPrefix sets the Redis key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(l *Locker) {
		if prefix != "" {
			l.keyPrefix = prefix
		}
	}
}

// New creates a Redis-backed Locker. Panics if client is nil.
func New(client redis.UniversalClient, opts ...Option) *Locker {
	if client == nil {
		panic("redislock: redis client is required")
	}

	l := &Locker{
		client:     client,
		ttl:        30 * time.Second,
		retryDelay: 50 * time.Millisecond,
		keyPrefix:  "lock:subscription:",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock acquires the lease for key, polling until it succeeds or ctx is done.
// The returned UnlockFunc releases the lease; releasing an expired lease is
// a no-op.
func (l *Locker) Lock(ctx context.Context, key string) (subscription.UnlockFunc, error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redislock: acquire %s: %w", key, err)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
}

// release runs on a background context so an unlock still happens when the
// caller's context was canceled mid-operation.
func (l *Locker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Result()
}
