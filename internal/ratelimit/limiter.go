package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Result is the outcome of a single limiter check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter decides whether one more request for key fits in the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Sliding counts requests per key over the trailing Window in a Redis sorted
// set. Rejected requests are not recorded, so a client hammering the API
// regains access once its accepted requests age out.
type Sliding struct {
	Client redis.Cmdable
	Prefix string
	Window time.Duration
	Max    int
	Now    func() time.Time
}

func (l Sliding) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	res := Result{Allowed: true, Limit: l.Max, Remaining: l.Max, Reset: now.Add(l.Window)}
	if l.Client == nil || l.Max <= 0 || l.Window <= 0 {
		return res, nil
	}

	redisKey := l.Prefix + key
	member := uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-l.Window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{Limit: l.Max, Reset: res.Reset}, err
	}

	used := int(count.Val())
	if first := oldest.Val(); len(first) == 1 {
		res.Reset = time.Unix(0, int64(first[0].Score)).Add(l.Window)
	}
	if used > l.Max {
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return Result{Limit: l.Max, Reset: res.Reset}, err
		}
		res.Allowed, res.Remaining = false, 0
		return res, nil
	}
	res.Remaining = l.Max - used
	return res, nil
}

// Fixed is a fixed window limiter on top of ulule/limiter.
type Fixed struct {
	lim *limiter.Limiter
}

// NewFixed builds a fixed window limiter storing counters in Redis.
func NewFixed(client *redis.Client, prefix string, window time.Duration, max int) (*Fixed, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	return &Fixed{lim: limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)})}, nil
}

// Allow increments the counter for key in the current window.
func (f *Fixed) Allow(ctx context.Context, key string) (Result, error) {
	lctx, err := f.lim.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !lctx.Reached,
		Limit:     int(lctx.Limit),
		Remaining: int(lctx.Remaining),
		Reset:     time.Unix(lctx.Reset, 0),
	}, nil
}
