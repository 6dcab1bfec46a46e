package app

import (
	"context"
	"fmt"
	"time"

	"github.com/inhies/go-bytesize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/output"
	"github.com/tbonfort/be-big-data/internal/ports"
)

const tracerName = "github.com/tbonfort/be-big-data/internal/app"

// StackFetcher reads one window from every source of a stack.
type StackFetcher interface {
	FetchAll(ctx context.Context, sources []string, w domain.Window) ([]domain.BandBuffer, error)
}

// Compositor reduces a stack to one buffer.
type Compositor interface {
	Composite(ctx context.Context, buffers []domain.BandBuffer) (domain.BandBuffer, error)
}

// Assembler encodes and publishes a finished tile.
type Assembler interface {
	Assemble(ctx context.Context, t output.Tile) error
}

// CompositeObserver is told how long each composite took.
type CompositeObserver interface {
	ObserveComposite(pixels int, d time.Duration)
}

// Worker runs the per-request pipeline.
type Worker struct {
	reader     ports.RasterReader
	fetcher    StackFetcher
	compositor Compositor
	assembler  Assembler
	logger     ports.Logger
	observer   CompositeObserver
	tracer     trace.Tracer
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithCompositeObserver reports composite timings to o.
func WithCompositeObserver(o CompositeObserver) WorkerOption {
	return func(w *Worker) {
		w.observer = o
	}
}

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) WorkerOption {
	return func(w *Worker) {
		w.tracer = tp.Tracer(tracerName)
	}
}

// NewWorker wires a pipeline. reader is used for the georeferencing of the
// first dataset only; pixels come through fetcher.
func NewWorker(reader ports.RasterReader, fetcher StackFetcher, compositor Compositor, assembler Assembler, logger ports.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		reader:     reader,
		fetcher:    fetcher,
		compositor: compositor,
		assembler:  assembler,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process composites req.Window over req.Datasets and uploads the result to
// req.Destination. Invalid requests fail before any I/O.
func (w *Worker) Process(ctx context.Context, req domain.Request) (err error) {
	ctx, span := w.tracer.Start(ctx, "mosaic.Process", trace.WithAttributes(
		attribute.Int("mosaic.datasets", len(req.Datasets)),
		attribute.String("mosaic.window", req.Window.String()),
		attribute.String("mosaic.destination", req.Destination),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return err
	}

	start := time.Now()
	info, err := w.georeference(ctx, req.Datasets[0])
	if err != nil {
		return err
	}

	buffers, err := w.fetch(ctx, req)
	if err != nil {
		return err
	}
	fetched := time.Now()

	composite, err := w.composite(ctx, buffers, req.Window.Pixels())
	if err != nil {
		return err
	}
	composited := time.Now()

	tile := output.Tile{
		Data:        composite,
		Width:       req.Window.Width,
		Height:      req.Window.Height,
		Transform:   info.Transform.Adjust(req.Window),
		Projection:  info.Projection,
		Destination: req.Destination,
	}
	if err := w.assemble(ctx, tile); err != nil {
		return err
	}

	w.logger.Info("composite published",
		ports.Window(req.Window),
		ports.Destination(req.Destination),
		ports.Int("datasets", len(req.Datasets)),
		ports.Duration("read", fetched.Sub(start)),
		ports.Duration("median", composited.Sub(fetched)),
		ports.Duration("total", time.Since(start)),
	)
	return nil
}

// georeference reads the transform and projection of the first dataset.
func (w *Worker) georeference(ctx context.Context, source string) (ports.RasterInfo, error) {
	_, span := w.tracer.Start(ctx, "mosaic.Georeference")
	defer span.End()

	h, err := w.reader.Open(ctx, source)
	if err != nil {
		return ports.RasterInfo{}, &domain.FetchError{Source: source, Index: 0, Err: err}
	}
	info := h.Info()
	if err := h.Close(); err != nil {
		w.logger.Debug("close after georeference", ports.String("source", source), ports.Err(err))
	}
	return info, nil
}

func (w *Worker) fetch(ctx context.Context, req domain.Request) ([]domain.BandBuffer, error) {
	ctx, span := w.tracer.Start(ctx, "mosaic.Fetch")
	defer span.End()

	buffers, err := w.fetcher.FetchAll(ctx, req.Datasets, req.Window)
	if err != nil {
		return nil, err
	}
	var total int
	for _, b := range buffers {
		total += len(b)
	}
	w.logger.Debug("stack fetched",
		ports.Int("buffers", len(buffers)),
		ports.String("size", bytesize.New(float64(total)).String()),
	)
	return buffers, nil
}

func (w *Worker) composite(ctx context.Context, buffers []domain.BandBuffer, pixels int) (domain.BandBuffer, error) {
	ctx, span := w.tracer.Start(ctx, "mosaic.Composite")
	defer span.End()

	start := time.Now()
	out, err := w.compositor.Composite(ctx, buffers)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	if w.observer != nil {
		w.observer.ObserveComposite(pixels, time.Since(start))
	}
	return out, nil
}

func (w *Worker) assemble(ctx context.Context, t output.Tile) error {
	ctx, span := w.tracer.Start(ctx, "mosaic.Assemble")
	defer span.End()
	return w.assembler.Assemble(ctx, t)
}
