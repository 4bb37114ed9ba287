package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/alanyoungcy/marketnorm/internal/domain"
	"github.com/redis/go-redis/v9"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

var slidingWindow = redis.NewScript(slidingWindowLua)

// Bounds on the pause between attempts inside Wait.
const (
	minWaitBackoff = 10 * time.Millisecond
	maxWaitBackoff = time.Second
)

// RateLimiter is a sliding-window limiter over Redis sorted sets. The window
// is shared by every process using the same key, so parallel fetchers stay
// under the upstream API limit together.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a RateLimiter. limit and window are the budget Wait
// applies; non-positive values mean one request per second.
func NewRateLimiter(c *Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 || window <= 0 {
		limit, window = 1, time.Second
	}
	return &RateLimiter{rdb: c.rdb, limit: limit, window: window}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow counts one request against key and reports whether it fits within
// limit requests per window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ok, _, err := rl.reserve(ctx, key, limit, window)
	return ok, err
}

// Wait blocks until a request for key fits the limiter's budget. Between
// attempts it sleeps until the oldest request in the window expires.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	for {
		ok, retryIn, err := rl.reserve(ctx, key, rl.limit, rl.window)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(waitBackoff(retryIn))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("redis: rate limit wait %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

// reserve runs the window script. retryIn is set when the request was
// refused.
func (rl *RateLimiter) reserve(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	res, err := slidingWindow.Run(ctx, rl.rdb,
		[]string{rateLimitKey(key)},
		time.Now().UnixMicro(), window.Microseconds(), limit,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	if len(res) < 3 {
		return false, 0, fmt.Errorf("redis: rate limit %s: unexpected result length %d", key, len(res))
	}
	return res[0] == 1, time.Duration(res[2]) * time.Microsecond, nil
}

func waitBackoff(retryIn time.Duration) time.Duration {
	return min(max(retryIn, minWaitBackoff), maxWaitBackoff)
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
