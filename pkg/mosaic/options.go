package mosaic

import (
	"github.com/tbonfort/be-big-data/internal/fetch"
	"github.com/tbonfort/be-big-data/internal/metrics"
	"github.com/tbonfort/be-big-data/internal/ports"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField is a structured log field.
type LogField = ports.Field

// RasterReader, RasterWriter and ObjectStore are the injected I/O ports.
type (
	RasterReader = ports.RasterReader
	RasterWriter = ports.RasterWriter
	ObjectStore  = ports.ObjectStore
)

// Option configures optional behavior of a Service.
type Option func(*options)

type options struct {
	reader         ports.RasterReader
	writer         ports.RasterWriter
	store          ports.ObjectStore
	logger         ports.Logger
	metrics        *metrics.Metrics
	pool           *fetch.Pool
	eventHandler   EventHandler
	tracerProvider trace.TracerProvider
}

// WithReader sets the raster reader. Required.
func WithReader(r RasterReader) Option {
	return func(o *options) {
		o.reader = r
	}
}

// WithWriter sets the raster writer. Required.
func WithWriter(w RasterWriter) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithStore sets the object store results are uploaded to. Required.
func WithStore(s ObjectStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithLogger sets a custom logger. If not provided, nothing is logged.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records request, fetch and composite metrics into m and
// serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPool shares an existing fetch pool, e.g. between services of one
// process. Config.PoolSize is ignored.
func WithPool(p *fetch.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithEventHandler receives lifecycle state changes.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.eventHandler = h
	}
}

// WithTracerProvider replaces the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
