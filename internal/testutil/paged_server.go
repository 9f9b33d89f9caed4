// Package testutil provides an in-process page server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines a fixed response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPagedServer serves offset/limit pages of in-memory collections as
// {"items": [...], "total": N}.
type MockPagedServer struct {
	server *httptest.Server

	mu          sync.RWMutex
	collections map[string][]any
	handlers    map[string]http.HandlerFunc

	// behaviour
	delay         time.Duration
	failures      int
	failureStatus int
	remaining     int
	totalInHeader bool

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	offsets           []int
}

// NewMockPagedServer starts a server with no collections.
func NewMockPagedServer() *MockPagedServer {
	m := &MockPagedServer{
		collections:   make(map[string][]any),
		handlers:      make(map[string]http.HandlerFunc),
		remaining:     100,
		failureStatus: http.StatusServiceUnavailable,
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the server URL.
func (m *MockPagedServer) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockPagedServer) Close() {
	m.server.Close()
}

// AddCollection serves items at path.
func (m *MockPagedServer) AddCollection(path string, items []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[path] = items
}

// AddSequence serves the integers [0, total) at path.
func (m *MockPagedServer) AddSequence(path string, total int) {
	items := make([]any, total)
	for i := range items {
		items[i] = i
	}
	m.AddCollection(path, items)
}

// SetHandler replaces the page handler for path.
func (m *MockPagedServer) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse serves a fixed response at path.
func (m *MockPagedServer) SetResponse(path string, resp MockResponse) {
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

// SetDelay delays every page response.
func (m *MockPagedServer) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// FailNext makes the next n requests answer with status.
func (m *MockPagedServer) FailNext(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failureStatus = status
}

// SetRemaining sets the X-RateLimit-Remaining value sent with responses.
func (m *MockPagedServer) SetRemaining(remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = remaining
}

// SetTotalInHeader moves the total from the body to X-Total-Count.
func (m *MockPagedServer) SetTotalInHeader(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalInHeader = enabled
}

// Reset clears all tracking counters.
func (m *MockPagedServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.offsets = nil
}

// GetRequestCount returns the number of requests served.
func (m *MockPagedServer) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockPagedServer) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns the headers of the latest request.
func (m *MockPagedServer) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// Offsets returns the requested offsets in arrival order.
func (m *MockPagedServer) Offsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.offsets...)
}

// PageETag is the ETag served for a page window.
func PageETag(path string, offset, limit int) string {
	return fmt.Sprintf(`"%s:%d:%d"`, path, offset, limit)
}

func (m *MockPagedServer) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
		m.ConditionalCount++
	}
	fail := m.failures > 0
	if fail {
		m.failures--
	}
	delay, failureStatus, remaining, totalInHeader := m.delay, m.failureStatus, m.remaining, m.totalInHeader
	handler, hasHandler := m.handlers[r.URL.Path]
	items, hasCollection := m.collections[r.URL.Path]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", "60")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if fail {
		w.WriteHeader(failureStatus)
		w.Write([]byte(`{"error": "injected failure"}`))
		return
	}

	if hasHandler {
		handler(w, r)
		return
	}

	if !hasCollection {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
		return
	}

	offset, err1 := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err2 := strconv.Atoi(r.URL.Query().Get("limit"))
	if err1 != nil || err2 != nil || offset < 0 || limit <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bad window"}`))
		return
	}

	m.mu.Lock()
	m.offsets = append(m.offsets, offset)
	m.mu.Unlock()

	etag := PageETag(r.URL.Path, offset, limit)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// past the end yields an empty page
	start := min(offset, len(items))
	end := min(offset+limit, len(items))

	body := map[string]any{"items": items[start:end]}
	if totalInHeader {
		w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	} else {
		body["total"] = len(items)
	}

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
