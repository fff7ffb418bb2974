// Package lock serialises document mutations across API replicas with Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/sellerdesk/internal/shared"
)

// ErrBusy is returned when another request holds the lock.
var ErrBusy = shared.Conflict("Another change to this document is in progress, please retry")

// Locker obtains short-lived exclusive locks.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// New constructs a Locker on top of a go-redis client.
func New(rdb *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &Locker{client: redislock.New(rdb), ttl: ttl}
}

// WithLock runs fn while holding key. It does not wait for a busy key.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	held, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrBusy
	}
	if err != nil {
		return fmt.Errorf("platform/lock: obtain %s: %w", key, err)
	}
	defer func() {
		_ = held.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
