package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgdev_queries_total",
			Help: "SQL statements executed, by result kind and status",
		},
		[]string{"kind", "status"},
	)
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgdev_query_duration_seconds",
			Help:    "SQL statement execution time in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"kind"},
	)
	PoolsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgdev_pools_open",
			Help: "Number of open connection pools",
		},
	)
	IntrospectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgdev_introspections_total",
			Help: "Metadata introspection runs by status",
		},
		[]string{"status"},
	)
	IntrospectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgdev_introspection_duration_seconds",
			Help:    "Time spent introspecting one connection",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgdev_circuit_breaker_state",
			Help: "Connect circuit breaker state per profile (0=closed, 1=open, 2=half-open)",
		},
		[]string{"profile"},
	)
)

var registerOnce sync.Once

// InitMetrics registers every collector with the default registry. Later
// calls are no-ops.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(QueriesTotal)
		prometheus.MustRegister(QueryDuration)
		prometheus.MustRegister(PoolsOpen)
		prometheus.MustRegister(IntrospectionsTotal)
		prometheus.MustRegister(IntrospectionDuration)
		prometheus.MustRegister(CircuitBreakerState)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveQuery records one executed statement. kind is "query" or "update".
func ObserveQuery(kind string, ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	QueriesTotal.WithLabelValues(kind, status).Inc()
	QueryDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveIntrospection records one completed introspection run.
func ObserveIntrospection(ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	IntrospectionsTotal.WithLabelValues(status).Inc()
	IntrospectionDuration.Observe(d.Seconds())
}

// SetBreakerState publishes a breaker state for profile.
func SetBreakerState(profile string, state int) {
	CircuitBreakerState.WithLabelValues(profile).Set(float64(state))
}
