package guard

import (
	"sync"
	"time"

	"github.com/maydaypets/platform/internal/clock"
)

// RateLimiter is a sliding-window limiter over the injected clock.
// When a window trips, it reports the instant the key unblocks, which
// the caller records as a rate-limit fact in the subject's log.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	clock   clock.Clock
}

// NewRateLimiter creates a limiter allowing limit hits per window.
func NewRateLimiter(limit int, window time.Duration, clk clock.Clock) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		clock:   clk,
	}
}

// Allow records one hit for the key and reports whether it fit in the
// window. On a trip it returns the blocked-until instant: the moment
// the oldest retained hit slides out of the window.
func (rl *RateLimiter) Allow(key string) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	cutoff := now.Add(-rl.window)

	entries := rl.windows[key]
	valid := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= rl.limit {
		rl.windows[key] = valid
		return false, valid[0].Add(rl.window)
	}

	rl.windows[key] = append(valid, now)
	return true, time.Time{}
}
