// Package metrics exposes the connector's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postpipe"

// Ingest outcomes
const (
	OutcomeStored       = "stored"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeRoutingError = "routing_error"
	OutcomeStorageError = "storage_error"
)

var (
	// Registry holds the connector's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ingests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "submissions_total",
			Help:      "Total number of ingest attempts by outcome.",
		},
		[]string{"outcome"},
	)

	queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of submission queries by status.",
		},
		[]string{"status"},
	)

	routingResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "resolutions_total",
			Help:      "Resolved targets by precedence tier.",
		},
		[]string{"tier"},
	)

	poolDials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "dials_total",
			Help:      "Database connection attempts by scheme and result.",
		},
		[]string{"scheme", "result"},
	)

	poolDialDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "dial_duration_seconds",
			Help:      "Duration of database connection attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms to ~10s
		},
		[]string{"scheme"},
	)

	poolSize atomic.Pointer[func() int]

	poolClients = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "clients",
			Help:      "Current number of pooled database clients.",
		},
		func() float64 {
			if size := poolSize.Load(); size != nil {
				return float64((*size)())
			}
			return 0
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ingests,
		queries,
		routingResolutions,
		poolDials,
		poolDialDuration,
		poolClients,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordIngest counts one ingest attempt.
func RecordIngest(outcome string) {
	ingests.WithLabelValues(outcome).Inc()
}

// RecordQuery counts one query; status is "ok" or "error".
func RecordQuery(status string) {
	queries.WithLabelValues(status).Inc()
}

// RecordResolution counts a routing decision.
func RecordResolution(tier string) {
	routingResolutions.WithLabelValues(tier).Inc()
}

// RecordDial has the pool's dial observer signature.
func RecordDial(scheme string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	poolDials.WithLabelValues(scheme, result).Inc()
	poolDialDuration.WithLabelValues(scheme).Observe(elapsed.Seconds())
}

// RegisterPoolSize makes size the source of the pool clients gauge,
// replacing any earlier source.
func RegisterPoolSize(size func() int) {
	poolSize.Store(&size)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
