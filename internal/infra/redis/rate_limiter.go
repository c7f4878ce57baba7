package redis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Quota is a caller's standing in the current window after one hit.
type Quota struct {
	Limit   int
	Used    int64
	ResetIn time.Duration
}

func (q Quota) Exceeded() bool { return q.Used > int64(q.Limit) }

func (q Quota) Remaining() int {
	if left := int64(q.Limit) - q.Used; left > 0 {
		return int(left)
	}
	return 0
}

// RetryAfterSeconds rounds ResetIn up for the Retry-After header.
func (q Quota) RetryAfterSeconds() int {
	secs := int((q.ResetIn + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// RateLimiter counts hits per key in a window that opens on the first hit.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Take records one hit against key and reports the resulting quota.
func (r *RateLimiter) Take(ctx context.Context, key string, limit int, window time.Duration) (Quota, error) {
	used, err := r.client.Incr(ctx, key)
	if err != nil {
		return Quota{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	q := Quota{Limit: limit, Used: used, ResetIn: window}
	if used == 1 {
		return q, r.arm(ctx, key, window)
	}

	ttl, err := r.client.TTL(ctx, key)
	if err != nil {
		return Quota{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if ttl <= 0 {
		// a counter left without expiry would block the caller forever
		return q, r.arm(ctx, key, window)
	}
	q.ResetIn = ttl
	return q, nil
}

func (r *RateLimiter) arm(ctx context.Context, key string, window time.Duration) error {
	if err := r.client.Expire(ctx, key, window); err != nil {
		return fmt.Errorf("rate limit %s: set window: %w", key, err)
	}
	return nil
}

// AccountRouteKey scopes a counter to one account on one route.
func AccountRouteKey(account, route string) string {
	return "ratelimit:" + route + ":" + strings.ToLower(account)
}
