// Package testutil provides testing utilities for the Sincera enricher.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of one scripted API response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSincera is a configurable mock Sincera API server for testing.
// Responses are scripted per query string ("id=42", "domain=example.com")
// and consumed in order; the last scripted response repeats once the
// script is exhausted.
type MockSincera struct {
	server *httptest.Server

	mu      sync.RWMutex
	scripts map[string][]MockResponse
	served  map[string]int

	// Tracking
	RequestCount   int
	LastAuthHeader string
	queries        []string
}

// NewMockSincera creates a new mock API server.
func NewMockSincera() *MockSincera {
	mock := &MockSincera{
		scripts: make(map[string][]MockResponse),
		served:  make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.RawQuery

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastAuthHeader = r.Header.Get("Authorization")
		mock.queries = append(mock.queries, query)

		script, exists := mock.scripts[query]
		var resp MockResponse
		if exists && len(script) > 0 {
			idx := mock.served[query]
			if idx >= len(script) {
				idx = len(script) - 1
			}
			resp = script[idx]
			mock.served[query]++
		}
		mock.mu.Unlock()

		if !exists {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "publisher not found"}`))
			return
		}

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
	}))

	return mock
}

// URL returns the mock publishers endpoint URL.
func (m *MockSincera) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSincera) Close() {
	m.server.Close()
}

// Reset clears all scripts and tracking counters.
func (m *MockSincera) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = make(map[string][]MockResponse)
	m.served = make(map[string]int)
	m.RequestCount = 0
	m.LastAuthHeader = ""
	m.queries = nil
}

// Script sets the response sequence for one query string.
func (m *MockSincera) Script(query string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[query] = responses
	m.served[query] = 0
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSincera) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Queries returns the query strings received, in order.
func (m *MockSincera) Queries() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

// NewPublisherResponse creates a standard 200 OK response for a
// publisher payload.
func NewPublisherResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response with the
// given Retry-After value.
func NewRateLimitResponse(retryAfter string) MockResponse {
	headers := map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
	if retryAfter != "" {
		headers["Retry-After"] = retryAfter
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
