package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T) (*Limiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, "rl"), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestCheckDeniesAtLimit(t *testing.T) {
	l, _, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	key := l.Key("login", "a@x.com")

	for i := 0; i < 5; i++ {
		if err := l.Check(ctx, key, 5); err != nil {
			t.Fatalf("attempt %d: expected allowed, got %v", i+1, err)
		}
		if _, err := l.Increment(ctx, key, 300*time.Second); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	err := l.Check(ctx, key, 5)
	if !errors.Is(err, ErrLimited) {
		t.Fatalf("expected ErrLimited at count 5, got %v", err)
	}
	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected *LimitError, got %T", err)
	}
	if limitErr.RetryAfter != 300*time.Second {
		t.Fatalf("expected retry after 300s, got %v", limitErr.RetryAfter)
	}
}

func TestIncrementDoesNotExtendWindow(t *testing.T) {
	l, mr, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	key := l.Key("login", "a@x.com")

	if _, err := l.Increment(ctx, key, 300*time.Second); err != nil {
		t.Fatalf("increment: %v", err)
	}
	mr.FastForward(100 * time.Second)
	count, err := l.Increment(ctx, key, 300*time.Second)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
	if ttl := mr.TTL(key); ttl != 200*time.Second {
		t.Fatalf("expected window to keep running at 200s, got %v", ttl)
	}

	mr.FastForward(201 * time.Second)
	if n, _ := l.Attempts(ctx, key); n != 0 {
		t.Fatalf("expected counter to decay after window, got %d", n)
	}
}

func TestIncrementAssignsExpiryToTTLLessKey(t *testing.T) {
	l, mr, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	key := l.Key("login", "stale@x.com")

	if err := mr.Set(key, "3"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	count, err := l.Increment(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected count 4, got %d", count)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected TTL-less key to get a 1m expiry, got %v", ttl)
	}
}

func TestResetClearsCounter(t *testing.T) {
	l, _, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	key := l.Key("login", "a@x.com")

	for i := 0; i < 5; i++ {
		_, _ = l.Increment(ctx, key, time.Minute)
	}
	if err := l.Reset(ctx, key); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Check(ctx, key, 5); err != nil {
		t.Fatalf("expected allowed after reset, got %v", err)
	}
	if n, _ := l.Attempts(ctx, key); n != 0 {
		t.Fatalf("expected 0 attempts after reset, got %d", n)
	}
}

func TestCheckRetryAfterWithoutExpiry(t *testing.T) {
	l, mr, done := newLimiterTest(t)
	defer done()
	ctx := context.Background()
	key := l.Key("login", "noexp@x.com")

	if err := mr.Set(key, "9"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var limitErr *LimitError
	if err := l.Check(ctx, key, 5); !errors.As(err, &limitErr) {
		t.Fatalf("expected *LimitError, got %v", err)
	}
	if limitErr.RetryAfter != time.Second {
		t.Fatalf("expected 1s fallback retry, got %v", limitErr.RetryAfter)
	}
}

func TestLimiterReportsRedisUnavailable(t *testing.T) {
	l, mr, done := newLimiterTest(t)
	defer done()
	mr.Close()
	ctx := context.Background()

	if err := l.Check(ctx, "k", 1); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := l.Increment(ctx, "k", time.Minute); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
