package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "giftcard"

// Metrics holds the Prometheus collectors for one service process.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	sessionOps      *prometheus.CounterVec
	forwardDropped  prometheus.Counter
}

// NewMetrics registers the collectors on a private registry, labeled with the service name.
func NewMetrics(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "HTTP requests by route, method and status",
			ConstLabels: constLabels,
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "errors_total",
			Help:        "Error responses by route, method and error code",
			ConstLabels: constLabels,
		}, []string{"route", "method", "code"}),
		sessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "session",
			Name:        "operations_total",
			Help:        "Session manager operations by outcome",
			ConstLabels: constLabels,
		}, []string{"op", "outcome"}),
		forwardDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "log_forward",
			Name:        "dropped_total",
			Help:        "Log entries dropped because the forward buffer was full or delivery failed",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.errors,
		m.sessionOps,
		m.forwardDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest counts a request and observes its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordSessionOp counts a session manager call, e.g. ("login", "reused").
func (m *Metrics) RecordSessionOp(op, outcome string) {
	if m == nil {
		return
	}
	m.sessionOps.WithLabelValues(op, outcome).Inc()
}

// RecordForwardDropped counts a log entry the forwarder gave up on.
func (m *Metrics) RecordForwardDropped() {
	if m == nil {
		return
	}
	m.forwardDropped.Inc()
}

// RegisterBadger exposes the embedded store's on-disk size.
func (m *Metrics) RegisterBadger(db *badger.DB) {
	if m == nil || db == nil {
		return
	}
	size := func(pick func(lsm, vlog int64) int64) func() float64 {
		return func() float64 {
			lsm, vlog := db.Size()
			return float64(pick(lsm, vlog))
		}
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, size(func(lsm, _ int64) int64 { return lsm })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, size(func(_, vlog int64) int64 { return vlog })),
	)
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
