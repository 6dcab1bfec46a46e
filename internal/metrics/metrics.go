// Package metrics exposes Prometheus collectors for the mosaic worker.
//
// All collectors live on a private registry so several services can coexist
// in one process (and in tests) without duplicate-registration panics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mosaic"

// Request outcomes used as the status label.
const (
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Metrics holds the worker's collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests          *prometheus.CounterVec
	activeRequests    prometheus.Gauge
	requestDuration   prometheus.Histogram
	fetches           *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	compositeDuration prometheus.Histogram
	compositePixels   prometheus.Counter
	uploadedBytes     prometheus.Counter
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Composite requests by outcome.",
		}, []string{"status"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Composite requests currently being processed.",
		}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end composite request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Source window reads by outcome.",
		}, []string{"status"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of a single source window read.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		compositeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "composite_duration_seconds",
			Help:      "Time spent computing the median composite.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		compositePixels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "composite_pixels_total",
			Help:      "Pixels composited.",
		}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes uploaded to object storage.",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.activeRequests,
		m.requestDuration,
		m.fetches,
		m.fetchDuration,
		m.compositeDuration,
		m.compositePixels,
		m.uploadedBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementActiveRequests marks a request as started.
func (m *Metrics) IncrementActiveRequests() {
	m.activeRequests.Inc()
}

// DecrementActiveRequests marks a request as finished.
func (m *Metrics) DecrementActiveRequests() {
	m.activeRequests.Dec()
}

// ObserveRequest records a finished request.
func (m *Metrics) ObserveRequest(status string, d time.Duration) {
	m.requests.WithLabelValues(status).Inc()
	m.requestDuration.Observe(d.Seconds())
}

// ObserveFetch records one source read. It satisfies fetch.Observer.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	m.fetches.WithLabelValues(status).Inc()
	m.fetchDuration.Observe(d.Seconds())
}

// ObserveComposite records one composite computation over pixels pixels.
func (m *Metrics) ObserveComposite(pixels int, d time.Duration) {
	m.compositePixels.Add(float64(pixels))
	m.compositeDuration.Observe(d.Seconds())
}

// AddUploadedBytes counts bytes sent to object storage.
func (m *Metrics) AddUploadedBytes(n int64) {
	m.uploadedBytes.Add(float64(n))
}
