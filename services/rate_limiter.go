package services

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter implements a sliding one-minute window limiter for outbound calls
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	lastRequests      []time.Time
	now               func() time.Time
}

// NewRateLimiter creates a new rate limiter. A non-positive rpm disables limiting.
func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: rpm,
		lastRequests:      make([]time.Time, 0),
		now:               time.Now,
	}
}

// Wait blocks until a request can be made within rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.requestsPerMinute <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	if len(r.lastRequests) >= r.requestsPerMinute {
		waitDuration := r.lastRequests[0].Add(time.Minute).Sub(now)
		if waitDuration > 0 {
			slog.Info("Rate limit reached, waiting...",
				"waitSeconds", waitDuration.Seconds(),
				"rpm", r.requestsPerMinute,
			)

			timer := time.NewTimer(waitDuration)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			now = r.now()
			r.prune(now)
		}
	}

	r.lastRequests = append(r.lastRequests, now)
	return nil
}

// prune drops requests outside the window. Callers must hold the lock.
func (r *RateLimiter) prune(now time.Time) {
	windowStart := now.Add(-time.Minute)
	valid := r.lastRequests[:0]
	for _, t := range r.lastRequests {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	r.lastRequests = valid
}
