package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestAllowWithinLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := New(client, Config{Limit: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
			t.Fatalf("hit %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "signin", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("hit 4: got %v, want ErrRateLimited", err)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := New(client, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
		t.Fatalf("first ip: %v", err)
	}
	if err := l.Allow(ctx, "signin", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("first ip again: got %v, want ErrRateLimited", err)
	}

	// a different ip and a different prefix each get their own budget
	if err := l.Allow(ctx, "signin", "10.0.0.2"); err != nil {
		t.Fatalf("second ip: %v", err)
	}
	if err := l.Allow(ctx, "signup", "10.0.0.1"); err != nil {
		t.Fatalf("other prefix: %v", err)
	}
}

func TestWindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := New(client, Config{Limit: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
		t.Fatalf("first hit: %v", err)
	}
	if err := l.Allow(ctx, "signin", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second hit: got %v, want ErrRateLimited", err)
	}

	mr.FastForward(61 * time.Second)

	if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestLocalFallbackWithoutRedis(t *testing.T) {
	l := New(nil, Config{Limit: 2, Window: time.Minute})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
			t.Fatalf("hit %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "signin", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("over limit: got %v, want ErrRateLimited", err)
	}

	now = now.Add(61 * time.Second)
	if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
		t.Fatalf("after window: %v", err)
	}
}

func TestFallsBackWhenRedisDies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := New(client, Config{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
		t.Fatalf("redis hit: %v", err)
	}

	mr.Close()

	// Redis is gone; the local counter takes over with a fresh budget
	for i := 0; i < 2; i++ {
		if err := l.Allow(ctx, "signin", "10.0.0.1"); err != nil {
			t.Fatalf("fallback hit %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "signin", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("fallback over limit: got %v, want ErrRateLimited", err)
	}
}
