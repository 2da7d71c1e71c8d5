package client

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{status: 400, expected: ErrorClassClient},
		{status: 401, expected: ErrorClassClient},
		{status: 403, expected: ErrorClassClient},
		{status: 404, expected: ErrorClassClient},
		{status: 408, expected: ErrorClassTransport},
		{status: 429, expected: ErrorClassRateLimit},
		{status: 500, expected: ErrorClassServer},
		{status: 502, expected: ErrorClassServer},
		{status: 503, expected: ErrorClassServer},
		{status: 504, expected: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected bool
	}{
		{class: ErrorClassTransport, expected: true},
		{class: ErrorClassRateLimit, expected: true},
		{class: ErrorClassServer, expected: true},
		{class: ErrorClassClient, expected: false},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.class); got != tt.expected {
			t.Errorf("shouldRetry(%q) = %v, want %v", tt.class, got, tt.expected)
		}
	}
}

func TestAPIError_Matching(t *testing.T) {
	clientErr := &APIError{StatusCode: 404, Class: ErrorClassClient, URL: "https://api.congress.gov/v3/bill/1"}
	serverErr := &APIError{StatusCode: 503, Class: ErrorClassServer}
	transportErr := &APIError{Class: ErrorClassTransport, Err: io.ErrUnexpectedEOF}

	if !errors.Is(clientErr, ErrClientError) {
		t.Error("404 should match ErrClientError")
	}
	if errors.Is(serverErr, ErrClientError) {
		t.Error("503 should not match ErrClientError")
	}
	if !errors.Is(transportErr, io.ErrUnexpectedEOF) {
		t.Error("transport error should unwrap to its cause")
	}
	if !strings.Contains(clientErr.Error(), "status 404") {
		t.Errorf("Error() = %q, want status", clientErr.Error())
	}

	wrapped := fmt.Errorf("fetch bill: %w", clientErr)
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) || apiErr.StatusCode != 404 {
		t.Errorf("errors.As through wrap failed: %v", wrapped)
	}
}

func TestExhaustedRetriesError(t *testing.T) {
	last := &APIError{StatusCode: 503, Class: ErrorClassServer}
	err := &ExhaustedRetriesError{Attempts: 3, URL: "https://api.congress.gov/v3/bill", Last: last}

	if !errors.Is(err, ErrExhaustedRetries) {
		t.Error("should match ErrExhaustedRetries")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr != last {
		t.Error("should expose the last attempt's APIError")
	}
	if errors.Is(err, ErrClientError) {
		t.Error("exhausted server retries should not match ErrClientError")
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("Error() = %q, want attempt count", err.Error())
	}
}
