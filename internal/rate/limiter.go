package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Limit  int
	Window time.Duration
}

// Limiter enforces a fixed-window counter per key using Redis, with an
// in-process fallback when Redis is unavailable.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// New creates a [Limiter] backed by the given Redis client. A nil
// client runs the limiter purely on the in-process fallback.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
		local:  make(map[string]*window),
	}
}

// SetClock overrides the limiter's time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Allow records one hit for "<prefix>:<ip>" and reports whether the
// caller is still within budget. Returns ErrRateLimited once the
// window's limit is exceeded; Redis outages fall through to the local
// counter and never surface as errors here.
func (l *Limiter) Allow(ctx context.Context, prefix, ip string) error {
	key := prefix + ":" + ip

	if l.redis != nil {
		count, err := l.incrementWithTTL(ctx, key, l.config.Window)
		if err == nil {
			if count > int64(l.config.Limit) {
				return ErrRateLimited
			}
			return nil
		}
	}

	return l.allowLocal(key)
}

func (l *Limiter) allowLocal(key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.local[key]
	if !ok || now.After(w.resetAt) {
		l.local[key] = &window{count: 1, resetAt: now.Add(l.config.Window)}
		return nil
	}

	w.count++
	if w.count > l.config.Limit {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
