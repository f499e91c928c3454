// Package lock is a Redis lease used to serialise bill numbering across API
// instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired means someone else held the key for the whole wait.
var ErrNotAcquired = errors.New("lock: not acquired")

// unlock deletes the key only while it still carries our token, so a lease
// that expired and was taken over is left alone.
var unlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

const keyPrefix = "lock:"

// Locker hands out leases stored under "lock:<key>".
type Locker struct {
	R            redis.Cmdable
	RetryBackoff time.Duration
	// MaxWait bounds acquisition. Zero waits as long as ctx allows.
	MaxWait time.Duration
}

// BillNumberKey guards the BILL-<year>-NNN sequence.
func BillNumberKey(year int) string {
	return fmt.Sprintf("bill-number:%d", year)
}

// Acquire polls until key is free and takes it for ttl. The returned release
// may be called more than once.
func (l Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.R == nil {
		return nil, errors.New("lock: redis client not configured")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	waitCtx := ctx
	if l.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.MaxWait)
		defer cancel()
	}

	name, token := keyPrefix+key, uuid.NewString()
	ticker := time.NewTicker(backoff)
	defer ticker.Stop()
	for {
		ok, err := l.R.SetNX(waitCtx, name, token, ttl).Result()
		switch {
		case ok:
			var once sync.Once
			return func() {
				once.Do(func() {
					_ = unlock.Run(context.WithoutCancel(ctx), l.R, []string{name}, token).Err()
				})
			}, nil
		case err != nil && waitCtx.Err() == nil:
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s", ErrNotAcquired, key)
		case <-ticker.C:
		}
	}
}

// WithLock runs fn while holding key and releases it afterwards, also when fn
// fails. fn's context is cut at ttl since the lease is gone by then.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	release, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer release()
	if ttl > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ttl)
		defer cancel()
	}
	return fn(ctx)
}
