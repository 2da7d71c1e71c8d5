package client

import (
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "congress_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// BackoffPolicy computes the wait before a retry using capped exponential
// backoff with full jitter. A server Retry-After hint always wins.
type BackoffPolicy struct {
	// Base is the delay ceiling for the first retry.
	Base time.Duration

	// Cap bounds the delay ceiling.
	Cap time.Duration

	// Jitter returns a uniform factor in [0,1). Nil disables jitter.
	Jitter func() float64
}

// NewBackoffPolicy returns a full-jitter policy backed by the global random source.
func NewBackoffPolicy(base, cap time.Duration) BackoffPolicy {
	return BackoffPolicy{Base: base, Cap: cap, Jitter: rand.Float64}
}

// NewSeededBackoffPolicy returns a policy whose jitter sequence is reproducible.
// The source is safe for concurrent use.
func NewSeededBackoffPolicy(base, cap time.Duration, seed uint64) BackoffPolicy {
	src := &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	return BackoffPolicy{Base: base, Cap: cap, Jitter: src.Float64}
}

// Ceiling returns min(Cap, Base * 2^attempt). It is non-decreasing in attempt.
func (p BackoffPolicy) Ceiling(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.Base) * math.Exp2(float64(attempt))
	if math.IsInf(d, 0) || d >= float64(p.Cap) {
		return p.Cap
	}
	return time.Duration(d)
}

// NextDelay returns the wait before retry number attempt (0 for the first retry).
// A non-nil hint overrides the computed delay; negative hints clamp to zero.
func (p BackoffPolicy) NextDelay(attempt int, hint *time.Duration) time.Duration {
	if hint != nil {
		return max(0, *hint)
	}
	ceiling := p.Ceiling(attempt)
	if p.Jitter == nil {
		return ceiling
	}
	return time.Duration(float64(ceiling) * p.Jitter())
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// ParseRetryAfter reads a Retry-After value given either as delay seconds or
// as an HTTP-date. Dates in the past yield zero. ok is false when the value
// is empty or unparseable.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		switch {
		case math.IsNaN(secs) || math.IsInf(secs, 0):
			return 0, false
		case secs < 0:
			return 0, true
		case secs >= float64(math.MaxInt64)/float64(time.Second):
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs * float64(time.Second)), true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := at.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
