package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrDailyQuotaExceeded is returned when the provider's daily request
// quota has been exhausted.
var ErrDailyQuotaExceeded = errors.New("daily geocoding quota exceeded")

// RateLimiter controls provider request rate and daily usage quotas.
// It uses a token bucket for per-second rate limiting and a rolling
// 24-hour window for daily quota tracking. Public providers (Nominatim
// in particular) enforce strict usage policies; the limiter keeps us
// inside them.
type RateLimiter struct {
	limiter  *rate.Limiter
	maxDaily int64

	mu          sync.Mutex
	daily       int64
	windowStart time.Time
	resetAt     time.Time
	nowFunc     func() time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a rate limiter with the given per-second rate,
// burst size, and daily quota. The daily quota uses a rolling 24-hour
// window that resets 24 hours after the first request in each window.
func NewRateLimiter(
	perSecond float64,
	burst int,
	maxDaily int64,
	opts ...RateLimiterOption,
) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	now := r.nowFunc()
	r.windowStart = now
	r.resetAt = now.Add(24 * time.Hour)
	return r
}

// Wait blocks until the rate limiter allows the call, or the context is
// canceled. Returns ErrDailyQuotaExceeded if the daily quota is spent.
// Quota is only consumed once the token bucket has admitted the call,
// and the check-and-increment is a single critical section so concurrent
// callers cannot overshoot the quota.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	if now.After(r.resetAt) {
		r.daily = 0
		r.windowStart = now
		r.resetAt = now.Add(24 * time.Hour)
	}

	if r.daily >= r.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrDailyQuotaExceeded, r.daily, r.maxDaily)
	}
	r.daily++
	return nil
}

// DailyCount returns the current daily request count.
func (r *RateLimiter) DailyCount() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.daily
}

// Remaining returns the number of requests remaining in the current
// 24-hour window.
func (r *RateLimiter) Remaining() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := r.maxDaily - r.daily
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetAt returns the time when the current 24-hour window expires and
// the daily counter resets.
func (r *RateLimiter) ResetAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetAt
}
