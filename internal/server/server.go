// Package server exposes the worker over HTTP: the Pub/Sub push endpoint,
// a health probe and the Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tbonfort/be-big-data/internal/adapters/pubsub"
	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/metrics"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// MaxBodyBytes caps push payloads.
const MaxBodyBytes = 4 << 20

// Processor runs one composite request.
type Processor interface {
	Process(ctx context.Context, req domain.Request) error
}

// Gate admits requests. Begin fails while the service is not running.
type Gate interface {
	Begin() (done func(), err error)
}

// RequestMetrics is the subset of *metrics.Metrics the server records into.
type RequestMetrics interface {
	IncrementActiveRequests()
	DecrementActiveRequests()
	ObserveRequest(status string, d time.Duration)
	Handler() http.Handler
}

// Server routes HTTP requests to a Processor.
type Server struct {
	mux       *http.ServeMux
	processor Processor
	logger    ports.Logger
	metrics   RequestMetrics
	gate      Gate
	timeout   time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records requests into m and serves it on /metrics.
func WithMetrics(m RequestMetrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithGate refuses requests with 503 when g does not admit them.
func WithGate(g Gate) Option {
	return func(s *Server) {
		s.gate = g
	}
}

// WithRequestTimeout bounds the processing of one request. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New creates a server and registers its routes.
func New(processor Processor, logger ports.Logger, opts ...Option) *Server {
	s := &Server{mux: http.NewServeMux(), processor: processor, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("/median", s.median)
	s.mux.HandleFunc("/healthz", s.health)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// median handles POST /median. 204 acknowledges the Pub/Sub message; any
// other status makes Pub/Sub redeliver it.
func (s *Server) median(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.gate != nil {
		done, err := s.gate.Begin()
		if err != nil {
			jsonErr(w, http.StatusServiceUnavailable, "not running")
			return
		}
		defer done()
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.IncrementActiveRequests()
		defer s.metrics.DecrementActiveRequests()
	}

	status, err := s.handle(w, r)
	if s.metrics != nil {
		s.metrics.ObserveRequest(metricStatus(status, err), time.Since(start))
	}
	if err != nil {
		jsonErr(w, status, err.Error())
		return
	}
	w.WriteHeader(status)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) (int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.logger.Warn("read push body", ports.Err(err))
		return http.StatusBadRequest, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	req, id, err := pubsub.DecodeRequest(body)
	if err != nil {
		s.logger.Warn("rejected push message", ports.String("message_id", id), ports.Err(err))
		return http.StatusBadRequest, err
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Info("received request",
		ports.String("message_id", id),
		ports.Window(req.Window),
		ports.Int("datasets", len(req.Datasets)),
	)
	if err := s.processor.Process(ctx, req); err != nil {
		status := StatusFor(err)
		s.logger.Error("request failed",
			ports.String("message_id", id),
			ports.Destination(req.Destination),
			ports.Int("status", status),
			ports.Err(err),
		)
		return status, err
	}
	return http.StatusNoContent, nil
}

// StatusFor maps a processing error to an HTTP status: 400 when retrying the
// same request cannot succeed, 500 otherwise.
func StatusFor(err error) int {
	var (
		bounds *domain.WindowOutOfBoundsError
		bands  *domain.BandCountError
	)
	switch {
	case err == nil:
		return http.StatusNoContent
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrNoDatasets),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrStackTooDeep),
		errors.As(err, &bounds),
		errors.As(err, &bands):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func metricStatus(code int, err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.StatusCanceled
	case code == http.StatusBadRequest:
		return metrics.StatusInvalid
	default:
		return metrics.StatusFailed
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.gate != nil {
		done, err := s.gate.Begin()
		if err != nil {
			jsonErr(w, http.StatusServiceUnavailable, "not running")
			return
		}
		done()
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, map[string]string{"error": msg})
}

// Serve listens on addr until ctx is cancelled, then shuts down, waiting up
// to shutdownTimeout for open connections.
func Serve(ctx context.Context, addr string, h http.Handler, shutdownTimeout time.Duration, logger ports.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return ServeListener(ctx, ln, h, shutdownTimeout, logger)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, ln net.Listener, h http.Handler, shutdownTimeout time.Duration, logger ports.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", ports.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
