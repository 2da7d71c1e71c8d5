// Package client provides the Congress.gov HTTP request executor with rate
// limiting, retries, and response decoding.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/congress-api-client/pkg/ratelimit"
	"github.com/Sternrassler/congress-api-client/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for request execution.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_requests_total",
		Help: "Total upstream request attempts by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "congress_request_duration_seconds",
		Help:    "Logical request duration in seconds including retries, by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "congress_errors_total",
		Help: "Total failed attempts by error class",
	}, []string{"class"})
)

// DefaultBaseURL is the Congress.gov v3 API root.
const DefaultBaseURL = "https://api.congress.gov/v3"

// apiKeyParam is the query parameter carrying the API key.
const apiKeyParam = "api_key"

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the client configuration.
type Config struct {
	// APIKey for api.congress.gov (REQUIRED)
	APIKey string

	// BaseURL of the API; requests to this host carry the API key
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per attempt
	Timeout time.Duration

	// MinInterval spaces consecutive requests (0 disables)
	MinInterval time.Duration

	// Retry
	MaxTries    int
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// Rate Limiting
	RequestsPerHour int           // Upstream hourly quota, 0 disables the bucket
	SafetyMargin    float64       // Fraction of the quota held back
	Cooldown        time.Duration // Sleep when the bucket is empty

	// Limiter overrides the bucket built from the fields above, so several
	// clients can share one quota.
	Limiter *ratelimit.Limiter
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	rl := ratelimit.DefaultConfig()
	return Config{
		APIKey:          apiKey,
		BaseURL:         DefaultBaseURL,
		UserAgent:       "congress-api-client/0.1.0",
		Timeout:         60 * time.Second,
		MinInterval:     100 * time.Millisecond,
		MaxTries:        8,
		BackoffBase:     750 * time.Millisecond,
		BackoffCap:      60 * time.Second,
		RequestsPerHour: rl.RequestsPerHour,
		SafetyMargin:    rl.SafetyMargin,
		Cooldown:        rl.Cooldown,
	}
}

// RateLimitConfig returns the token bucket part of the configuration.
func (c Config) RateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		RequestsPerHour: c.RequestsPerHour,
		SafetyMargin:    c.SafetyMargin,
		Cooldown:        c.Cooldown,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL (got %q)", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", c.Timeout)
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("min_interval must be >= 0 (got %v)", c.MinInterval)
	}
	if c.MaxTries < 1 {
		return fmt.Errorf("max_tries must be >= 1 (got %d)", c.MaxTries)
	}
	if c.BackoffBase < 0 || c.BackoffCap < c.BackoffBase {
		return fmt.Errorf("backoff must satisfy 0 <= base <= cap (got %v, %v)", c.BackoffBase, c.BackoffCap)
	}
	if c.Limiter == nil {
		return c.RateLimitConfig().Validate()
	}
	return nil
}

// Request describes one logical API call.
type Request struct {
	Method string
	// URL is an absolute URL or a path relative to the base URL.
	URL    string
	Params url.Values
	Header http.Header
}

// Response is a fully read successful response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Client is the Congress.gov request executor.
type Client struct {
	httpClient Doer
	limiter    *ratelimit.Limiter
	throttle   *ratelimit.Throttle
	backoff    BackoffPolicy
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Congress.gov client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "congress-client").Logger()

	limiter := cfg.Limiter
	if limiter == nil {
		var err error
		limiter, err = ratelimit.NewLimiter(cfg.RateLimitConfig(), log.With().Str("component", "ratelimit").Logger())
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
	}

	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))

	return &Client{
		httpClient: &http.Client{},
		limiter:    limiter,
		throttle:   ratelimit.NewThrottle(cfg.MinInterval),
		backoff:    NewBackoffPolicy(cfg.BackoffBase, cfg.BackoffCap),
		baseURL:    base,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}, nil
}

// Execute performs one logical request: acquire a token, send, and on a
// retryable failure wait and try again until MaxTries attempts are spent.
// It surfaces only *ExhaustedRetriesError, a fatal *APIError, or a context error.
func (c *Client) Execute(ctx context.Context, r Request) (*Response, error) {
	target, err := c.resolve(r.URL, r.Params)
	if err != nil {
		return nil, err
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	endpoint := target.Path
	display := redact(target)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var last *APIError
	for attempt := 0; attempt < c.config.MaxTries; attempt++ {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("throttle: %w", err)
		}
		// Every attempt spends quota; the upstream counts retries like any request.
		if err := c.limiter.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("method", method).
			Int("attempt", attempt+1).
			Msg("Executing request")

		resp, err := c.send(ctx, method, target, r.Header)
		if err == nil {
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return nil, err
		}
		errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()

		if !apiErr.Retryable() {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", apiErr.StatusCode).
				Str("error_class", string(apiErr.Class)).
				Msg("Request failed with non-retryable error")
			return nil, apiErr
		}

		last = apiErr
		if attempt+1 >= c.config.MaxTries {
			break
		}

		delay := c.backoff.NextDelay(attempt, apiErr.RetryAfter)
		retriesTotal.WithLabelValues(string(apiErr.Class)).Inc()
		retryBackoffSeconds.WithLabelValues(string(apiErr.Class)).Observe(delay.Seconds())

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", apiErr.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Int("attempt", attempt+1).
			Int("max_tries", c.config.MaxTries).
			Bool("server_hint", apiErr.RetryAfter != nil).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}
	}

	retryExhaustedTotal.WithLabelValues(string(last.Class)).Inc()
	c.logger.Error().
		Str("endpoint", endpoint).
		Str("error_class", string(last.Class)).
		Int("max_tries", c.config.MaxTries).
		Msg("Retry attempts exhausted")

	return nil, &ExhaustedRetriesError{Attempts: c.config.MaxTries, URL: display, Last: last}
}

// send performs a single attempt. Failures come back as *APIError unless the
// caller's context ended, in which case the context error is returned.
func (c *Client) send(ctx context.Context, method string, target *url.URL, header http.Header) (*Response, error) {
	endpoint := target.Path
	display := redact(target)

	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, method, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		requestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, &APIError{Class: ErrorClassTransport, URL: display, Err: scrubURLError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		requestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, &APIError{Class: ErrorClassTransport, URL: display, Err: fmt.Errorf("read body: %w", err)}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if err := c.limiter.Observe(resp.Header); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to parse upstream quota headers")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
			URL:        display,
		}, nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      classifyStatus(resp.StatusCode),
		URL:        display,
		Message:    snippet(body),
	}
	if apiErr.Retryable() {
		if hint, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()); ok {
			apiErr.RetryAfter = &hint
		}
	}
	return nil, apiErr
}

// Get fetches a path relative to the base URL and decodes the JSON body.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (record.RawRecord, error) {
	resp, err := c.Execute(ctx, Request{Method: http.MethodGet, URL: path, Params: params})
	if err != nil {
		return nil, err
	}
	return decode(resp)
}

// GetURL fetches an absolute URL, typically a next-page cursor, and decodes the JSON body.
func (c *Client) GetURL(ctx context.Context, rawURL string) (record.RawRecord, error) {
	return c.Get(ctx, rawURL, nil)
}

// resolve builds the target URL: relative paths join the base URL, params
// are merged into the query, and the API key is added for the API host.
func (c *Client) resolve(raw string, params url.Values) (*url.URL, error) {
	var target *url.URL
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		target = u
	} else {
		ref, err := url.Parse(strings.TrimLeft(raw, "/"))
		if err != nil {
			return nil, fmt.Errorf("parse path %q: %w", raw, err)
		}
		target = c.baseURL.JoinPath(ref.Path)
		target.RawQuery = ref.RawQuery
	}

	q := target.Query()
	for key, values := range params {
		q.Del(key)
		for _, v := range values {
			if v != "" {
				q.Add(key, v)
			}
		}
	}
	if target.Host == c.baseURL.Host && q.Get(apiKeyParam) == "" {
		q.Set(apiKeyParam, c.config.APIKey)
	}
	target.RawQuery = q.Encode()
	return target, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// Limiter returns the shared token bucket.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// SetHTTPClient sets a custom transport (for testing).
func (c *Client) SetHTTPClient(doer Doer) {
	c.httpClient = doer
}

// SetBackoffPolicy replaces the retry backoff policy.
func (c *Client) SetBackoffPolicy(p BackoffPolicy) {
	c.backoff = p
}

// decode parses a JSON object body and strips a {"root": ...} envelope.
func decode(resp *Response) (record.RawRecord, error) {
	var payload map[string]any
	if err := json.NewDecoder(bytes.NewReader(resp.Body)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrDecode, resp.URL, err)
	}
	return record.Unwrap(record.RawRecord(payload)), nil
}

// redact returns the URL as a string with the API key removed, for logs and errors.
func redact(u *url.URL) string {
	q := u.Query()
	if !q.Has(apiKeyParam) {
		return u.String()
	}
	q.Del(apiKeyParam)
	clean := *u
	clean.RawQuery = q.Encode()
	return clean.String()
}

// scrubURLError keeps the API key out of transport errors, which embed the full URL.
func scrubURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil {
			return &url.Error{Op: urlErr.Op, URL: redact(u), Err: urlErr.Err}
		}
	}
	return err
}

func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
