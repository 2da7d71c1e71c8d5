// Package metrics exposes the Prometheus metrics of the Congress.gov client.
// All metrics are defined in their respective packages (client, ratelimit,
// pagination, hydration) to avoid circular dependencies; this package serves
// them and documents them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done. It returns once the
// listener is bound; serving continues in the background.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return ln.Addr(), nil
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - congress_rate_limit_tokens (Gauge): Tokens left in the local hourly bucket
//   - congress_rate_limit_acquired_total (Counter): Tokens spent on upstream requests
//   - congress_rate_limit_cooldowns_total (Counter): Cooldown sleeps entered on an empty bucket
//   - congress_upstream_quota_remaining (Gauge): Last X-RateLimit-Remaining seen from the server
//
// Request Metrics (pkg/client):
//   - congress_requests_total{endpoint, status} (Counter): Attempts by endpoint and HTTP status
//   - congress_request_duration_seconds{endpoint} (Histogram): Logical request duration including retries
//   - congress_errors_total{class} (Counter): Failed attempts by class (transport, rate_limit, server, client)
//
// Retry Metrics (pkg/client):
//   - congress_retries_total{error_class} (Counter): Retry attempts by error class
//   - congress_retry_backoff_seconds{error_class} (Histogram): Chosen backoff by error class
//   - congress_retry_exhausted_total{error_class} (Counter): Requests that used up max_tries
//
// Pagination Metrics (pkg/pagination):
//   - congress_pages_fetched_total{data_key} (Counter): List pages fetched
//   - congress_items_yielded_total{data_key} (Counter): List items handed to consumers
//
// Hydration Metrics (pkg/hydration):
//   - congress_hydration_outcomes_total{outcome} (Counter): enriched, skipped or failed items
//
// Example Prometheus Queries:
//
//   # Bucket close to empty
//   congress_rate_limit_tokens < 50
//
//   # Retry pressure by class
//   sum by (error_class) (rate(congress_retries_total[5m]))
//
//   # Share of skipped hydrations
//   rate(congress_hydration_outcomes_total{outcome="skipped"}[15m]) /
//   sum(rate(congress_hydration_outcomes_total[15m]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(congress_request_duration_seconds_bucket[5m]))
