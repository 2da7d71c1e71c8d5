package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var upstreamRemaining = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "congress_upstream_quota_remaining",
	Help: "Requests remaining in the upstream hourly window as reported by X-RateLimit-Remaining",
})

// Upstream quota headers sent by api.data.gov in front of Congress.gov.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
)

// LowQuotaFraction marks the upstream quota as low when fewer than this
// fraction of requests remain.
const LowQuotaFraction = 0.05

// quotaReportInterval spaces repeated upstream quota log lines.
const quotaReportInterval = time.Minute

// Quota is the upstream's own view of the hourly window.
// It is informational: the local bucket stays the only admission control.
type Quota struct {
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ObservedAt time.Time `json:"observed_at"`
}

// ParseQuota reads the upstream quota headers.
// It returns ok=false when the response carries no quota information.
func ParseQuota(headers http.Header, now time.Time) (q Quota, ok bool, err error) {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return Quota{}, false, nil
	}
	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return Quota{}, false, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	q = Quota{Remaining: remain, ObservedAt: now}
	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return Quota{}, false, fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
		q.Limit = limit
	}
	return q, true, nil
}

// IsLow reports whether the upstream window is nearly spent.
func (q Quota) IsLow() bool {
	if q.Limit <= 0 {
		return q.Remaining <= 0
	}
	return float64(q.Remaining) < float64(q.Limit)*LowQuotaFraction
}

// IsStale returns true if the observation is older than maxAge.
func (q Quota) IsStale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(q.ObservedAt) > maxAge
}

// Observe records the upstream quota carried by a response.
// A low upstream window or a disagreement with the local bucket is logged at
// most once per quotaReportInterval; the bucket itself is left untouched.
func (l *Limiter) Observe(headers http.Header) error {
	q, ok, err := ParseQuota(headers, l.now())
	if err != nil || !ok {
		return err
	}

	disagrees := false
	l.mu.Lock()
	l.upstream = q
	local := l.tokens
	report := l.reported.IsStale(quotaReportInterval, q.ObservedAt)
	if report {
		disagrees = !l.disabled && float64(q.Remaining) < local
		if q.IsLow() || disagrees {
			l.reported = q
		}
	}
	l.mu.Unlock()

	upstreamRemaining.Set(float64(q.Remaining))

	switch {
	case !report:
	case q.IsLow():
		l.logger.Warn().
			Int("upstream_remaining", q.Remaining).
			Int("upstream_limit", q.Limit).
			Float64("tokens", local).
			Msg("Upstream quota nearly exhausted")
	case disagrees:
		l.logger.Debug().
			Int("upstream_remaining", q.Remaining).
			Float64("tokens", local).
			Msg("Upstream reports fewer requests than local bucket")
	}
	return nil
}

// Upstream returns the last observed upstream quota.
func (l *Limiter) Upstream() Quota {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.upstream
}
