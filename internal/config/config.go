// Package config loads congress-cli settings from defaults, an optional YAML
// file and CONGRESS_* environment variables.
package config

import (
	"errors"
	"time"

	"github.com/Sternrassler/congress-api-client/pkg/client"
	"github.com/Sternrassler/congress-api-client/pkg/congress"
	"github.com/Sternrassler/congress-api-client/pkg/logging"
	"github.com/Sternrassler/congress-api-client/pkg/pagination"
)

// Config contains process configuration.
type Config struct {
	// APIKey is the api.data.gov key sent with every request.
	APIKey string `koanf:"api_key"`

	BaseURL   string `koanf:"base_url"`
	UserAgent string `koanf:"user_agent"`

	// Timeout bounds a single attempt.
	Timeout time.Duration `koanf:"timeout"`

	// MinInterval spaces consecutive requests. Zero disables the throttle.
	MinInterval time.Duration `koanf:"min_interval"`

	MaxTries    int           `koanf:"max_tries"`
	BackoffBase time.Duration `koanf:"backoff_base"`
	BackoffCap  time.Duration `koanf:"backoff_cap"`
	PageSize    int           `koanf:"page_size"`

	// RequestsPerHour sizes the local token bucket. Zero disables rate limiting.
	RequestsPerHour int           `koanf:"requests_per_hour"`
	SafetyMargin    float64       `koanf:"safety_margin"`
	Cooldown        time.Duration `koanf:"cooldown"`

	// Workers is the hydration fan-out. 1 hydrates sequentially.
	Workers int `koanf:"workers"`

	// ContinueOnError skips items whose detail fetch fails.
	ContinueOnError bool `koanf:"continue_on_error"`

	// RedisAddr enables the Redis cursor store when set.
	RedisAddr string        `koanf:"redis_addr"`
	RedisDB   int           `koanf:"redis_db"`
	CursorTTL time.Duration `koanf:"cursor_ttl"`

	LogLevel  string `koanf:"log_level"`
	LogPretty bool   `koanf:"log_pretty"`

	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`
}

// New returns a Config holding the library defaults and no API key.
func New() *Config {
	c := client.DefaultConfig("")
	svc := congress.DefaultConfig()
	return &Config{
		BaseURL:         c.BaseURL,
		UserAgent:       c.UserAgent,
		Timeout:         c.Timeout,
		MinInterval:     c.MinInterval,
		MaxTries:        c.MaxTries,
		BackoffBase:     c.BackoffBase,
		BackoffCap:      c.BackoffCap,
		PageSize:        svc.PageSize,
		RequestsPerHour: c.RequestsPerHour,
		SafetyMargin:    c.SafetyMargin,
		Cooldown:        c.Cooldown,
		Workers:         svc.Workers,
		ContinueOnError: true,
		CursorTTL:       pagination.DefaultCursorTTL,
		LogLevel:        string(logging.LevelInfo),
	}
}

// Validate checks the process settings, then the client and service settings
// derived from them.
func (c *Config) Validate() error {
	if c.CursorTTL < 0 {
		return errors.New("cursor_ttl must not be negative")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.ServiceConfig().Validate(); err != nil {
		return err
	}
	return c.ClientConfig().Validate()
}

// ClientConfig converts the settings into a client configuration.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		APIKey:          c.APIKey,
		BaseURL:         c.BaseURL,
		UserAgent:       c.UserAgent,
		Timeout:         c.Timeout,
		MinInterval:     c.MinInterval,
		MaxTries:        c.MaxTries,
		BackoffBase:     c.BackoffBase,
		BackoffCap:      c.BackoffCap,
		RequestsPerHour: c.RequestsPerHour,
		SafetyMargin:    c.SafetyMargin,
		Cooldown:        c.Cooldown,
	}
}

// ServiceConfig converts the settings into a service configuration. The
// cursor store is left for the caller to attach.
func (c *Config) ServiceConfig() congress.Config {
	cfg := congress.DefaultConfig()
	cfg.PageSize = c.PageSize
	cfg.Workers = c.Workers
	return cfg
}

// LoggingConfig converts the settings into a logger configuration.
// Output is left nil so Setup writes to stderr.
func (c *Config) LoggingConfig() logging.Config {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.Config{Level: level, Pretty: c.LogPretty}
}
