// Package testutil provides testing utilities for the Congress.gov client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// apiPrefix mirrors the versioned root of the real API.
const apiPrefix = "/v3"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCongress is a configurable mock Congress.gov server for testing.
type MockCongress struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	pathCounts   map[string]int
	LastQuery    map[string][]string
}

// NewMockCongress creates a new mock server. Paths registered on it are
// relative to BaseURL, e.g. "bill/118".
func NewMockCongress() *MockCongress {
	mock := &MockCongress{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix), "/")

		mock.mu.Lock()
		mock.RequestCount++
		mock.pathCounts[path]++
		mock.LastQuery = r.URL.Query()
		handler, exists := mock.handlers[path]
		remaining := max(0, 5000-mock.RequestCount)
		mock.mu.Unlock()

		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if r.URL.Query().Get("api_key") == "" {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]any{"code": "API_KEY_MISSING"}})
			return
		}

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		writeJSON(w, http.StatusNotFound, map[string]any{"error": fmt.Sprintf("no route for %s", path)})
	}))

	return mock
}

// BaseURL returns the API root to configure clients with.
func (m *MockCongress) BaseURL() string {
	return m.server.URL + apiPrefix
}

// Client returns an HTTP client that trusts the mock server.
func (m *MockCongress) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockCongress) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCongress) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.pathCounts = make(map[string]int)
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a path relative to BaseURL.
func (m *MockCongress) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[strings.Trim(path, "/")] = handler
}

// handler returns the handler currently registered for path.
func (m *MockCongress) handler(path string) http.HandlerFunc {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handlers[strings.Trim(path, "/")]
}

// SetResponse configures a fixed response for a path.
func (m *MockCongress) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON serves body as a 200 JSON response.
func (m *MockCongress) SetJSON(path string, body any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	})
}

// SetList serves items as an offset-paginated list under dataKey. Pages honor
// the limit and offset parameters and link to the next page with an absolute
// URL, like the real API.
func (m *MockCongress) SetList(path, dataKey string, items []map[string]any) {
	path = strings.Trim(path, "/")
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil || limit <= 0 {
			limit = 20
		}
		offset, _ := strconv.Atoi(q.Get("offset"))

		end := min(offset+limit, len(items))
		page := []map[string]any{}
		if offset < len(items) {
			page = items[offset:end]
		}

		pagination := map[string]any{"count": len(items)}
		if end < len(items) {
			pagination["next"] = fmt.Sprintf("%s/%s?offset=%d&limit=%d&format=json", m.BaseURL(), path, end, limit)
		}
		writeJSON(w, http.StatusOK, map[string]any{dataKey: page, "pagination": pagination})
	})
}

// FailFirst makes the next n requests to path return resp, then falls back to
// the handler registered before the call.
func (m *MockCongress) FailFirst(path string, n int, resp MockResponse) {
	next := m.handler(path)
	var mu sync.Mutex
	remaining := n

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fail := remaining > 0
		if fail {
			remaining--
		}
		mu.Unlock()

		if !fail && next != nil {
			next(w, r)
			return
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCongress) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// PathCount returns the number of requests made to path.
func (m *MockCongress) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[strings.Trim(path, "/")]
}

// NewRateLimitResponse creates a 429 Too Many Requests response with a Retry-After hint.
func NewRateLimitResponse(retryAfter string) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "OVER_RATE_LIMIT"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
	if retryAfter != "" {
		resp.Headers["Retry-After"] = retryAfter
	}
	return resp
}

// NewServerErrorResponse creates a 503 Service Unavailable response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"error": "Service unavailable"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// Items builds n list records with fields from fn.
func Items(n int, fn func(i int) map[string]any) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
