// Package metrics provides Prometheus instrumentation for the price engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PricesSubmitted counts accepted price reports, partitioned by whether
	// a new listing was created for them.
	PricesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_prices_submitted_total",
		Help: "Total number of price reports accepted",
	}, []string{"new_listing"})

	// VotesApplied counts successful votes by direction (up, down, undo).
	VotesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_votes_applied_total",
		Help: "Total number of votes applied",
	}, []string{"direction"})

	// VoteRejections counts votes rejected by the state machine.
	VoteRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grocery_vote_rejections_total",
		Help: "Votes rejected by the vote state machine",
	})

	// OptimalQueries counts basket optimization requests by mode.
	OptimalQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_optimal_queries_total",
		Help: "Total number of optimal-store queries",
	}, []string{"mode"})

	// SaveConflicts counts optimistic-concurrency conflicts hit while
	// persisting item mutations (each one triggers a reload-and-retry).
	SaveConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grocery_save_conflicts_total",
		Help: "Item save attempts rejected by version conflict",
	})

	// FeedClients tracks connected price-feed WebSocket clients.
	FeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grocery_feed_clients",
		Help: "Number of connected price-feed WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocery_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grocery_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack exposes the underlying connection so WebSocket upgrades keep
// working behind the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return hj.Hijack()
}
