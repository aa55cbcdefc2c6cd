package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// NewRequestWithQueryParams creates an HTTP request with query parameters.
// This helper simplifies testing handlers that use r.URL.Query() to extract query string parameters.
//
// Example:
//
//	req := testutil.NewRequestWithQueryParams(
//	    http.MethodGet,
//	    "/api/adjusted-price",
//	    map[string]string{
//	        "stockNo":   "2330",
//	        "startDate": "2024-07-10",
//	        "endDate":   "2024-07-12",
//	    },
//	)
func NewRequestWithQueryParams(method, path string, queryParams map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, nil)

	if len(queryParams) > 0 {
		q := req.URL.Query()
		for key, value := range queryParams {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	return req
}

// WriteJSON encodes v as the response body of a fake upstream.
func WriteJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode fake response: %v", err)
	}
}

// RecordingServer is an httptest server that records every request it receives.
type RecordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
}

// NewRecordingServer starts a server that records requests before delegating to handler.
// The server is closed when the test ends.
func NewRecordingServer(t *testing.T, handler http.HandlerFunc) *RecordingServer {
	t.Helper()
	rs := &RecordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.requests = append(rs.requests, r.Clone(context.Background()))
		rs.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

// Requests returns the requests received so far.
func (rs *RecordingServer) Requests() []*http.Request {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]*http.Request, len(rs.requests))
	copy(out, rs.requests)
	return out
}

// Count returns the number of requests received so far.
func (rs *RecordingServer) Count() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.requests)
}

// NewFetcher returns a span fetcher that never sleeps, for provider tests.
func NewFetcher(opts spanfetch.Options) *spanfetch.Fetcher {
	return spanfetch.New(opts,
		spanfetch.WithSleep(func(context.Context, time.Duration) error { return nil }),
		spanfetch.WithJitter(func() float64 { return 0 }),
	)
}
