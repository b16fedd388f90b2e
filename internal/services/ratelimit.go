package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"nexora/pkg/memcache"
)

// RateLimitStore bounds inbound webhook volume per source identifier.
type RateLimitStore interface {
	// Allow records one request for key and reports whether it fits the
	// limit, plus the remaining quota in the current window.
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
}

type memoryRateLimit struct {
	window *memcache.SlidingWindow
	max    int
}

// NewMemoryRateLimit is the process-local implementation; per-instance only,
// so multi-instance deployments should prefer NewRedisRateLimit.
func NewMemoryRateLimit(max int, window time.Duration) RateLimitStore {
	return &memoryRateLimit{
		window: memcache.NewSlidingWindow(window),
		max:    max,
	}
}

func (m *memoryRateLimit) Allow(_ context.Context, key string) (bool, int, error) {
	count := m.window.Hit(key, time.Now())
	remaining := m.max - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= m.max, remaining, nil
}

type redisRateLimit struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisRateLimit shares the sliding window across instances via a sorted
// set of request timestamps per key.
func NewRedisRateLimit(client *redis.Client, max int, window time.Duration) RateLimitStore {
	return &redisRateLimit{client: client, max: max, window: window}
}

func (r *redisRateLimit) Allow(ctx context.Context, key string) (bool, int, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", now.Add(-r.window).UnixNano()))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	n := int(count.Val())
	remaining := r.max - n
	if remaining < 0 {
		remaining = 0
	}
	return n <= r.max, remaining, nil
}
