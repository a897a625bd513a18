package middleware

import (
	"net/http"
	"sync/atomic"
)

// Metrics counts requests by outcome.
type Metrics struct {
	requests     atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	rateLimited  atomic.Int64
	unauthorized atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	Requests     int64 `json:"request_count"`
	ClientErrors int64 `json:"client_error_count"`
	ServerErrors int64 `json:"server_error_count"`
	RateLimited  int64 `json:"rate_limited_count"`
	Unauthorized int64 `json:"unauthorized_count"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Middleware counts every request and classifies the response status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requests.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		switch {
		case rw.statusCode == http.StatusTooManyRequests:
			m.rateLimited.Add(1)
			m.clientErrors.Add(1)
		case rw.statusCode == http.StatusUnauthorized:
			m.unauthorized.Add(1)
			m.clientErrors.Add(1)
		case rw.statusCode >= 500:
			m.serverErrors.Add(1)
		case rw.statusCode >= 400:
			m.clientErrors.Add(1)
		}
	})
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests:     m.requests.Load(),
		ClientErrors: m.clientErrors.Load(),
		ServerErrors: m.serverErrors.Load(),
		RateLimited:  m.rateLimited.Load(),
		Unauthorized: m.unauthorized.Load(),
	}
}
