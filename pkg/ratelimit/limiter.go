// Package ratelimit guards the upstream hourly request quota with a token bucket.
//
// The bucket is sized to the hourly quota minus a safety margin and refills
// continuously at capacity/3600 tokens per second. When the bucket runs dry the
// caller sleeps for a coarse cooldown instead of computing the exact wait for
// the next token.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for the token bucket.
var (
	rateLimitTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "congress_rate_limit_tokens",
		Help: "Tokens left in the local hourly bucket after the last acquisition",
	})

	rateLimitAcquiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "congress_rate_limit_acquired_total",
		Help: "Total number of tokens spent on upstream requests",
	})

	rateLimitCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "congress_rate_limit_cooldowns_total",
		Help: "Total number of cooldown sleeps entered because the bucket was empty",
	})
)

// ErrCostExceedsCapacity is returned when a single acquisition asks for more
// tokens than the bucket can ever hold.
var ErrCostExceedsCapacity = errors.New("acquisition cost exceeds bucket capacity")

// refillWindow is the period over which a full bucket refills.
const refillWindow = time.Hour

// Config holds the token bucket configuration.
type Config struct {
	// RequestsPerHour is the upstream hourly quota. Zero disables limiting.
	RequestsPerHour int

	// SafetyMargin is the fraction of the quota held back as headroom, in [0,1).
	SafetyMargin float64

	// Cooldown is how long a caller sleeps when the bucket is empty.
	Cooldown time.Duration
}

// DefaultConfig returns the quota published for the Congress.gov API.
func DefaultConfig() Config {
	return Config{
		RequestsPerHour: 5000,
		SafetyMargin:    0.01,
		Cooldown:        15 * time.Minute,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.RequestsPerHour < 0 {
		return fmt.Errorf("requests_per_hour must be >= 0 (got %d)", c.RequestsPerHour)
	}
	if c.SafetyMargin < 0 || c.SafetyMargin >= 1 {
		return fmt.Errorf("safety_margin must be in [0,1) (got %v)", c.SafetyMargin)
	}
	if c.RequestsPerHour > 0 && c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be > 0 when rate limiting is enabled (got %v)", c.Cooldown)
	}
	return nil
}

// Capacity returns the effective bucket size: the quota reduced by the margin,
// never below one token. A disabled limiter has capacity zero.
func (c Config) Capacity() int {
	if c.RequestsPerHour <= 0 {
		return 0
	}
	effective := int(math.Floor(float64(c.RequestsPerHour)*(1.0-c.SafetyMargin) + 1e-9))
	return max(1, effective)
}

// Limiter is a token bucket shared by every request path of one client.
// The bucket state is guarded by mu, which is never held while sleeping.
type Limiter struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time

	disabled bool
	cooldown time.Duration
	upstream Quota
	reported Quota // last upstream observation that was logged

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

// NewLimiter creates a limiter with a full bucket.
func NewLimiter(cfg Config, logger zerolog.Logger) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	capacity := float64(cfg.Capacity())
	l := &Limiter{
		capacity:   capacity,
		refillRate: capacity / refillWindow.Seconds(),
		tokens:     capacity,
		disabled:   cfg.RequestsPerHour == 0,
		cooldown:   cfg.Cooldown,
		now:        time.Now,
		sleep:      sleepContext,
		logger:     logger,
	}
	l.lastRefill = l.now()
	rateLimitTokens.Set(capacity)
	return l, nil
}

// Acquire blocks until cost tokens are available and deducts them.
// It only fails when ctx is done or cost can never be satisfied.
func (l *Limiter) Acquire(ctx context.Context, cost int) error {
	if cost < 1 {
		cost = 1
	}
	if l.disabled {
		return nil
	}
	if float64(cost) > l.capacity {
		return fmt.Errorf("%w: cost %d, capacity %.0f", ErrCostExceedsCapacity, cost, l.capacity)
	}

	for {
		l.mu.Lock()
		l.refill(l.now())
		if l.tokens >= float64(cost) {
			l.tokens -= float64(cost)
			remaining := l.tokens
			l.mu.Unlock()

			rateLimitTokens.Set(remaining)
			rateLimitAcquiredTotal.Add(float64(cost))
			return nil
		}
		available := l.tokens
		l.mu.Unlock()

		rateLimitCooldownsTotal.Inc()
		l.logger.Info().
			Float64("tokens", available).
			Int("cost", cost).
			Dur("cooldown", l.cooldown).
			Float64("expected_refill", l.cooldown.Seconds()*l.refillRate).
			Msg("Hourly budget exhausted, entering cooldown")

		if err := l.sleep(ctx, l.cooldown); err != nil {
			return fmt.Errorf("rate limit cooldown: %w", err)
		}
	}
}

// refill tops up the bucket for the time elapsed since the last refill.
// Callers must hold mu.
func (l *Limiter) refill(now time.Time) {
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed > 0 {
		l.tokens = math.Min(l.capacity, l.tokens+elapsed*l.refillRate)
	}
	l.lastRefill = now
}

// Available returns the current token count after a lazy refill.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill(l.now())
	return l.tokens
}

// Capacity returns the bucket size.
func (l *Limiter) Capacity() float64 {
	return l.capacity
}

// Disabled reports whether limiting is bypassed.
func (l *Limiter) Disabled() bool {
	return l.disabled
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
