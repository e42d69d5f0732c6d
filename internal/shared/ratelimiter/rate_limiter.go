// Package ratelimiter limits how often an operation may run within a fixed window.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiterInterface blocks callers until another call fits in the current window.
type RateLimiterInterface interface {
	Wait(ctx context.Context) error
}

// RateLimiter allows at most limit calls per interval. It is safe for concurrent use.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	interval  time.Duration
	count     int
	lastReset time.Time
	now       func() time.Time
}

var _ RateLimiterInterface = (*RateLimiter)(nil)

// NewRateLimiter creates a RateLimiter. A non-positive limit disables limiting.
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		lastReset: time.Now(),
		now:       time.Now,
	}
}

// Wait reserves a slot, sleeping until the next window when the current one is full.
// It returns ctx.Err() if ctx ends first; the reserved slot is kept.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limit <= 0 {
		return nil
	}

	sleep := rl.reserve()
	if sleep <= 0 {
		return nil
	}

	slog.Info("rate limit reached, waiting", "limit", rl.limit, "interval", rl.interval, "sleep", sleep)
	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reserve counts one call and returns how long the caller must wait for its window.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// reset once the interval has passed
	for now.Sub(rl.lastReset) >= rl.interval {
		rl.count = 0
		rl.lastReset = rl.lastReset.Add(rl.interval)
	}

	rl.count++
	if rl.count <= rl.limit {
		return 0
	}

	// the call belongs to a later window
	windows := (rl.count - 1) / rl.limit
	return rl.lastReset.Add(time.Duration(windows) * rl.interval).Sub(now)
}
