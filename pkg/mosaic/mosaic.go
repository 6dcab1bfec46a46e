package mosaic

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	logAdapter "github.com/tbonfort/be-big-data/internal/adapters/log"
	"github.com/tbonfort/be-big-data/internal/app"
	"github.com/tbonfort/be-big-data/internal/compositor"
	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/fetch"
	"github.com/tbonfort/be-big-data/internal/output"
	"github.com/tbonfort/be-big-data/internal/ports"
	"github.com/tbonfort/be-big-data/internal/server"
)

// Request is one composite job.
type Request = domain.Request

// Service is an embeddable composite worker. Use New to create one, then
// Start to admit requests.
type Service struct {
	config    Config
	lifecycle *app.Lifecycle
	worker    *app.Worker
	assembler *output.Assembler
	handler   http.Handler
	logger    ports.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New wires a service. It is created in StateStopped.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.reader == nil || o.writer == nil || o.store == nil {
		return nil, fmt.Errorf("%w: reader, writer and store are required", domain.ErrInvalidConfig)
	}
	logger := o.logger
	if logger == nil {
		logger = logAdapter.Nop()
	}

	method, _ := compositor.ParseMethod(cfg.Method)
	policy, _ := domain.ParseNodataValues(cfg.NodataValues)

	pool := o.pool
	if pool == nil {
		pool = fetch.NewPool(cfg.PoolSize)
	}
	var fetchOpts []fetch.Option
	if o.metrics != nil {
		fetchOpts = append(fetchOpts, fetch.WithObserver(o.metrics))
	}
	orchestrator := fetch.NewOrchestrator(fetch.NewTileFetcher(o.reader), pool, logger, fetchOpts...)

	compOpts := []compositor.Option{compositor.WithMethod(method), compositor.WithNodataPolicy(policy)}
	if cfg.Shards > 0 {
		compOpts = append(compOpts, compositor.WithShards(cfg.Shards))
	}
	comp := compositor.New(compOpts...)

	staging, err := output.NewStaging(cfg.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	var asmOpts []output.AssemblerOption
	if cfg.PreviewSize > 0 {
		asmOpts = append(asmOpts, output.WithPreview(cfg.PreviewSize, policy))
	}
	if o.metrics != nil {
		asmOpts = append(asmOpts, output.WithUploadObserver(o.metrics))
	}
	assembler := output.NewAssembler(o.writer, o.store, staging, cfg.Encoding, logger, asmOpts...)

	var workerOpts []app.WorkerOption
	if o.metrics != nil {
		workerOpts = append(workerOpts, app.WithCompositeObserver(o.metrics))
	}
	if o.tracerProvider != nil {
		workerOpts = append(workerOpts, app.WithTracerProvider(o.tracerProvider))
	}
	worker := app.NewWorker(o.reader, orchestrator, comp, assembler, logger, workerOpts...)

	s := &Service{
		config:    cfg,
		lifecycle: app.NewLifecycle(logger, eventEmitter{handler: o.eventHandler}),
		worker:    worker,
		assembler: assembler,
		logger:    logger,
	}

	srvOpts := []server.Option{server.WithGate(s.lifecycle), server.WithRequestTimeout(cfg.RequestTimeout)}
	if o.metrics != nil {
		srvOpts = append(srvOpts, server.WithMetrics(o.metrics))
	}
	s.handler = server.New(worker, logger, srvOpts...)
	return s, nil
}

// Start admits requests until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	if err := s.lifecycle.TransitionTo(app.StateRunning, "ready"); err != nil {
		cancel()
		return err
	}

	go func() {
		<-runCtx.Done()
		if ctx.Err() != nil && s.lifecycle.CanStop() {
			_ = s.Stop()
		}
	}()
	return nil
}

// Stop refuses new requests and waits for admitted ones. It returns
// ErrShutdownTimeout if some are still running after
// Config.ShutdownTimeout.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	cancel := s.cancel
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(s.config.ShutdownTimeout)
	if cancel != nil {
		cancel()
	}
	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

// Status returns the current lifecycle state.
func (s *Service) Status() State {
	return s.lifecycle.State()
}

// Process runs one request synchronously. It fails with ErrNotRunning
// unless the service is running.
func (s *Service) Process(ctx context.Context, req Request) error {
	done, err := s.lifecycle.Begin()
	if err != nil {
		return err
	}
	defer done()
	return s.worker.Process(ctx, req)
}

// Handler serves POST /median, GET /healthz and, with WithMetrics,
// GET /metrics. Requests are admitted only while running.
func (s *Service) Handler() http.Handler {
	return s.handler
}

// SetEncoding changes the writer options of later requests.
func (s *Service) SetEncoding(enc EncodingOptions) {
	s.assembler.SetEncoding(enc)
}
