// Package metrics exposes the server's own Prometheus metrics: ingest
// counters, alert counters, stored history size and HTTP request tracking.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "benchboard"

// Metrics holds every collector, registered on a private registry so that
// several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	EntriesAppended     *prometheus.CounterVec
	EntriesRejected     *prometheus.CounterVec
	AlertsFired         *prometheus.CounterVec
	StoredEntries       prometheus.Gauge
	Suites              prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.EntriesAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_appended_total",
			Help:      "Benchmark entries appended, by suite and transport.",
		},
		[]string{"suite", "transport"},
	)
	m.EntriesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_rejected_total",
			Help:      "Benchmark entries rejected, by reason.",
		},
		[]string{"reason"},
	)
	m.AlertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Regression alerts fired, by suite and severity.",
		},
		[]string{"suite", "severity"},
	)
	m.StoredEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stored_entries",
			Help:      "Entries currently held across all suites.",
		},
	)
	m.Suites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "suites",
			Help:      "Number of benchmark suites.",
		},
	)
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EntriesAppended,
		m.EntriesRejected,
		m.AlertsFired,
		m.StoredEntries,
		m.Suites,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// EntryAppended records one accepted entry and the resulting history size.
func (m *Metrics) EntryAppended(suite, transport string, stored, suites int) {
	m.EntriesAppended.WithLabelValues(suite, transport).Inc()
	m.StoredEntries.Set(float64(stored))
	m.Suites.Set(float64(suites))
}

// EntryRejected records one rejected entry.
func (m *Metrics) EntryRejected(reason string) {
	m.EntriesRejected.WithLabelValues(reason).Inc()
}

// AlertFired records one fired alert.
func (m *Metrics) AlertFired(suite, severity string) {
	m.AlertsFired.WithLabelValues(suite, severity).Inc()
}

// Middleware tracks request counts and durations. The path label is the
// matched route pattern so suite names do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer for WebSocket upgrades.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
