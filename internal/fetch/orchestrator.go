package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// Fetcher is the single-source operation the orchestrator fans out.
type Fetcher interface {
	Fetch(ctx context.Context, source string, w domain.Window) (domain.BandBuffer, error)
}

// Observer is notified after every fetch attempt.
type Observer interface {
	ObserveFetch(source string, d time.Duration, err error)
}

// Orchestrator fetches the same window from many sources concurrently,
// bounded by a shared Pool.
type Orchestrator struct {
	fetcher  Fetcher
	pool     *Pool
	logger   ports.Logger
	observer Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver reports each fetch to o.
func WithObserver(o Observer) Option {
	return func(or *Orchestrator) {
		or.observer = o
	}
}

// NewOrchestrator creates an orchestrator. pool is normally the
// process-wide pool; a nil pool gets a private one of DefaultPoolSize.
func NewOrchestrator(fetcher Fetcher, pool *Pool, logger ports.Logger, opts ...Option) *Orchestrator {
	if pool == nil {
		pool = NewPool(DefaultPoolSize)
	}
	o := &Orchestrator{fetcher: fetcher, pool: pool, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FetchAll returns one buffer per source, in source order. The first failure
// cancels the remaining fetches and is returned as a *domain.FetchError; no
// partial result is returned. Fetches already reading when the call is
// cancelled run to completion and their results are dropped.
func (o *Orchestrator) FetchAll(ctx context.Context, sources []string, w domain.Window) ([]domain.BandBuffer, error) {
	if len(sources) == 0 {
		return nil, domain.ErrNoDatasets
	}

	results := make([]domain.BandBuffer, len(sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range sources {
		idx, src := i, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := o.pool.Acquire(gctx); err != nil {
				return err
			}
			defer o.pool.Release()

			if err := gctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			buf, err := o.fetcher.Fetch(gctx, src, w)
			if o.observer != nil {
				o.observer.ObserveFetch(src, time.Since(start), err)
			}
			if err != nil {
				return &domain.FetchError{Source: src, Index: idx, Err: err}
			}

			results[idx] = buf
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Warn("fetch failed",
			ports.Int("sources", len(sources)),
			ports.Window(w),
			ports.Err(err),
		)
		return nil, err
	}
	return results, nil
}
