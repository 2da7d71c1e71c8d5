// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every request, page and cursor checkpoint.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs traversal summaries and cooldowns.
	LevelInfo LogLevel = "info"

	// LevelWarn logs retries and recoverable problems.
	LevelWarn LogLevel = "warn"

	// LevelError logs skipped items and failed requests only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name. Empty selects info.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// zerologLevel converts LogLevel to zerolog.Level, defaulting to info.
func zerologLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Each request attempt (endpoint, attempt)
//   - Pages fetched and item counts
//   - Upstream quota header parsing problems
//
// Info: Normal operation events
//   - Traversal complete (pages, items, duration)
//   - Resuming from a stored cursor
//   - Rate limit cooldown entered
//
// Warn: Warning conditions that don't prevent operation
//   - Retry scheduled with its backoff
//   - Repeated next link from the server
//   - Cursor store failures (traversal continues)
//   - Upstream quota running low
//
// Error: Error conditions requiring attention
//   - Retry attempts exhausted
//   - Item hydration skipped or failed
//
// Context Fields:
//   - component: package emitting the event
//   - endpoint: API path without query
//   - status: HTTP status code
//   - attempt / max_tries: retry position
//   - backoff / cooldown: chosen wait
//   - error_class: transport, rate_limit, server, client
//   - traversal_id: one pagination walk
//   - page / items: pagination progress
