// Package metrics provides Prometheus instrumentation for the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesLogged counts ledger entries, partitioned by action.
	TradesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaps_trades_logged_total",
		Help: "Total trades appended to the ledger",
	}, []string{"action"})

	// ActivePositions tracks the number of open LEAPS positions.
	ActivePositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leaps_active_positions",
		Help: "Number of currently open positions",
	})

	// QuoteFetches counts market data lookups by source (provider, cache,
	// simulator).
	QuoteFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaps_quote_fetches_total",
		Help: "Market data quote lookups by source",
	}, []string{"source"})

	// Recommendations counts strike recommendations served, partitioned by
	// the classified market condition.
	Recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaps_recommendations_total",
		Help: "Strike recommendations served by market condition",
	}, []string{"condition"})

	// Reconciliations counts short-call ledger scans by outcome (open, none).
	Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaps_reconciliations_total",
		Help: "Short call reconciliation passes by outcome",
	}, []string{"outcome"})

	// RollsBlocked counts roll requests refused for extreme risk.
	RollsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leaps_rolls_blocked_total",
		Help: "Roll requests blocked by the risk gate",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaps_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leaps_http_request_duration_seconds",
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

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
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
