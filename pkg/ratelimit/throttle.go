package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces consecutive requests at least a minimum interval apart.
// It runs in front of the hourly bucket as a politeness guard.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle for minInterval. A non-positive interval
// yields a throttle that never waits.
func NewThrottle(minInterval time.Duration) *Throttle {
	if minInterval <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next request may be sent.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}
