package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// DefaultConcurrency bounds in-flight publishes.
const DefaultConcurrency = 32

// Result counts the outcome of a Run.
type Result struct {
	Published uint64
	Failed    uint64
}

// Dispatcher publishes requests through a ports.Publisher.
type Dispatcher struct {
	publisher   ports.Publisher
	logger      ports.Logger
	concurrency int
	retries     int
	initial     time.Duration
	max         time.Duration
	onDone      func(req domain.Request, err error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrency bounds in-flight publishes to n.
func WithConcurrency(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithRetries retries a failed publish n times with exponential backoff
// starting at initial and capped at max.
func WithRetries(n int, initial, max time.Duration) Option {
	return func(d *Dispatcher) {
		d.retries = n
		d.initial = initial
		d.max = max
	}
}

// WithOnDone calls fn after every request, successful or not. fn may be
// called concurrently.
func WithOnDone(fn func(req domain.Request, err error)) Option {
	return func(d *Dispatcher) {
		d.onDone = fn
	}
}

// New creates a dispatcher.
func New(publisher ports.Publisher, logger ports.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publisher:   publisher,
		logger:      logger,
		concurrency: DefaultConcurrency,
		retries:     3,
		initial:     DefaultBackoffInitial,
		max:         DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run publishes every request. Failed publishes are counted, not returned;
// the only error is ctx's, when it ends the run early.
func (d *Dispatcher) Run(ctx context.Context, reqs []domain.Request) (Result, error) {
	var published, failed atomic.Uint64

	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)

	for _, req := range reqs {
		if ctx.Err() != nil {
			break
		}
		req := req
		g.Go(func() error {
			id, err := d.publish(ctx, req)
			if err != nil {
				failed.Add(1)
				d.logger.Error("failed to publish",
					ports.Window(req.Window),
					ports.Err(err),
				)
			} else {
				published.Add(1)
				d.logger.Debug("published tile",
					ports.Window(req.Window),
					ports.String("message_id", id),
				)
			}
			if d.onDone != nil {
				d.onDone(req, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Published: published.Load(), Failed: failed.Load()}
	return res, ctx.Err()
}

func (d *Dispatcher) publish(ctx context.Context, req domain.Request) (string, error) {
	b := newBackoff(d.initial, d.max)
	for attempt := 0; ; attempt++ {
		id, err := d.publisher.Publish(ctx, req)
		if err == nil {
			return id, nil
		}
		if attempt >= d.retries || ctx.Err() != nil {
			return "", err
		}
		d.logger.Warn("publish failed, retrying",
			ports.Destination(req.Destination),
			ports.Int("attempt", attempt+1),
			ports.Duration("backoff", b.Current()),
			ports.Err(err),
		)
		if serr := b.Sleep(ctx); serr != nil {
			return "", err
		}
	}
}
