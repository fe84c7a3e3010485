package network

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit is a per-source budget: at most Calls requests per Period.
type RateLimit struct {
	Calls  int           `json:"calls"`
	Period time.Duration `json:"period"`
}

// Interval is the spacing enforced between consecutive requests.
func (r RateLimit) Interval() time.Duration {
	if r.Calls <= 0 || r.Period <= 0 {
		return 0
	}
	return r.Period / time.Duration(r.Calls)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimiter spaces requests for one source. Its state lives as long as the
// limiter does, so keeping a Fetcher alive across runs keeps the budget continuous.
type RateLimiter struct {
	limiter *rate.Limiter
	now     func() time.Time
	sleep   SleepFunc
}

func NewRateLimiter(limit RateLimit) *RateLimiter {
	every := rate.Inf
	if interval := limit.Interval(); interval > 0 {
		every = rate.Every(interval)
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(every, 1),
		now:     time.Now,
		sleep:   Sleep,
	}
}

// WithClock swaps the time source and sleeper, for tests.
func (l *RateLimiter) WithClock(now func() time.Time, sleep SleepFunc) *RateLimiter {
	l.now = now
	l.sleep = sleep
	return l
}

// Wait blocks until the next request fits the budget.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	now := l.now()
	reservation := l.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return nil
	}
	if err := l.sleep(ctx, reservation.DelayFrom(now)); err != nil {
		reservation.CancelAt(l.now())
		return err
	}
	return nil
}
