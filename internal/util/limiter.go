package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter to provide a simpler interface.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a new token bucket limiter.
// r: tokens per second.
// b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether an event with weight n may happen now.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}

// Throttle enforces a minimum interval between watch-mode analysis
// runs. A filesystem burst that survives debouncing still must not
// trigger back-to-back full re-analyses.
type Throttle struct {
	inner *rate.Limiter
}

func NewThrottle(minInterval time.Duration) *Throttle {
	if minInterval <= 0 {
		return &Throttle{inner: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Throttle{inner: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Allow reports whether a run may start now. A rejected run is
// dropped, not queued; the next event picks up the work.
func (t *Throttle) Allow() bool {
	return t.inner.AllowN(time.Now(), 1)
}

// Wait blocks until the interval has elapsed or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	return t.inner.WaitN(ctx, 1)
}
