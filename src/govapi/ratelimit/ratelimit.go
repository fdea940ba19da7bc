package ratelimit

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrExceeded = errors.New("rate limit exceeded")

// Limiter is a fixed-window counter keyed by caller identity. Approximate
// under multi-process deployment is acceptable; this is not a correctness
// resource.
type Limiter interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration) error
}

// RedisLimiter shares the window counters across processes.
type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Consume(ctx context.Context, key string, limit int, window time.Duration) error {
	rkey := "rl:" + key
	n, err := l.rdb.Incr(ctx, rkey).Result()
	if err != nil {
		// counter unavailable: let the request through rather than
		// failing the whole call path on a cache outage
		log.Printf("ratelimit: %v", err)
		return nil
	}
	if n == 1 {
		l.rdb.Expire(ctx, rkey, window)
	}
	if n > int64(limit) {
		return ErrExceeded
	}
	return nil
}

type bucket struct {
	count int
	reset time.Time
}

// MemoryLimiter is the per-process fallback.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]bucket), now: time.Now}
}

func (l *MemoryLimiter) Consume(_ context.Context, key string, limit int, window time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || b.reset.Before(now) {
		l.buckets[key] = bucket{count: 1, reset: now.Add(window)}
		return nil
	}
	if b.count >= limit {
		return ErrExceeded
	}
	b.count++
	l.buckets[key] = b
	return nil
}
