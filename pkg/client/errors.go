package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrExhaustedRetries is returned when every attempt of a request failed with a retryable error.
	ErrExhaustedRetries = errors.New("retry attempts exhausted")

	// ErrClientError matches any non-retryable 4xx response via errors.Is.
	ErrClientError = errors.New("non-retryable client error")

	// ErrContextCancelled is returned when the context is cancelled during a retry wait.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrDecode is returned when a successful response body is not a JSON object.
	ErrDecode = errors.New("decode response")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassTransport represents connection failures and timeouts.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassClient represents 4xx client errors other than 429 and 408.
	ErrorClassClient ErrorClass = "client"
)

// APIError describes one failed attempt against the upstream API.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	URL        string
	Message    string

	// RetryAfter is the server's Retry-After hint, nil when absent.
	RetryAfter *time.Duration

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("congress api %s error: %s: %v", e.Class, e.URL, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("congress api %s error (status %d): %s: %s", e.Class, e.StatusCode, e.URL, e.Message)
	}
	return fmt.Sprintf("congress api %s error (status %d): %s", e.Class, e.StatusCode, e.URL)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrClientError) match fatal 4xx responses.
func (e *APIError) Is(target error) bool {
	return target == ErrClientError && e.Class == ErrorClassClient
}

// Retryable reports whether the attempt may be repeated.
func (e *APIError) Retryable() bool {
	return shouldRetry(e.Class)
}

// ExhaustedRetriesError is returned when a request used up its attempt budget.
type ExhaustedRetriesError struct {
	Attempts int
	URL      string
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %s: %v", ErrExhaustedRetries, e.Attempts, e.URL, e.Last)
}

// Unwrap exposes both the sentinel and the last attempt's error.
func (e *ExhaustedRetriesError) Unwrap() []error {
	return []error{ErrExhaustedRetries, e.Last}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassTransport, ErrorClassRateLimit, ErrorClassServer:
		return true
	default:
		// 4xx is a caller mistake; repeating it only burns quota
		return false
	}
}

// classifyStatus maps a non-2xx status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ErrorClassRateLimit
	case status == 408:
		return ErrorClassTransport
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}
