package rate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const incrementScript = `
local count = redis.call("INCR", KEYS[1])
if redis.call("TTL", KEYS[1]) < 0 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return count
`

var incrementLua = redis.NewScript(incrementScript)

// Limiter enforces fixed-window attempt budgets using Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a rate [Limiter] backed by the given Redis client. prefix
// namespaces every counter key (empty selects "rl").
func New(redisClient redis.UniversalClient, prefix string) *Limiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Key builds the counter key for subject within scope, e.g. Key("login", email).
func (l *Limiter) Key(scope, subject string) string {
	return l.prefix + ":" + scope + ":" + subject
}

// Check returns a [*LimitError] when the counter at key has reached limit.
// Missing counters pass.
func (l *Limiter) Check(ctx context.Context, key string, limit int) error {
	pipe := l.redis.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, err := getCmd.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < int64(limit) {
		return nil
	}

	return &LimitError{RetryAfter: retryAfter(ttlCmd.Val())}
}

// Increment records one attempt at key and returns the new count. The
// expiry is set to window only when the key has none, so an open window is
// never extended.
func (l *Limiter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	seconds := int64(math.Ceil(window.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	count, err := incrementLua.Run(ctx, l.redis, []string{key}, strconv.FormatInt(seconds, 10)).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return count, nil
}

// Reset clears the counter at key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current count at key, zero when absent.
func (l *Limiter) Attempts(ctx context.Context, key string) (int, error) {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// retryAfter rounds a remaining TTL up to whole seconds. Negative TTLs
// (no expiry, or the key vanished between reads) fall back to one second.
func retryAfter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Second
	}
	return time.Duration(math.Ceil(ttl.Seconds())) * time.Second
}
