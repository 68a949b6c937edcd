package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLimited is matched by every [LimitError].
	ErrLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps every failure talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LimitError reports a denied check and how long until the window closes.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Is lets errors.Is(err, ErrLimited) match.
func (e *LimitError) Is(target error) bool {
	return target == ErrLimited
}
