package mosaic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbonfort/be-big-data/internal/adapters/fs"
	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/metrics"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// memRaster is a 3-band raster filled with one triple.
type memRaster struct {
	w, h    int
	r, g, b uint8
}

type memHandle struct{ r memRaster }

func (h memHandle) Info() ports.RasterInfo {
	return ports.RasterInfo{
		Width: h.r.w, Height: h.r.h, BandCount: domain.Bands,
		Transform:  domain.GeoTransform{A: 10, C: 300000, E: -10, F: 4900000},
		Projection: "EPSG:32631",
	}
}

func (h memHandle) ReadWindow(_ context.Context, w domain.Window, buf domain.BandBuffer) error {
	n := w.Pixels()
	for p := 0; p < n; p++ {
		buf[p], buf[n+p], buf[2*n+p] = h.r.r, h.r.g, h.r.b
	}
	return nil
}

func (h memHandle) Close() error { return nil }

type memReader map[string]memRaster

func (m memReader) Open(_ context.Context, source string) (ports.RasterHandle, error) {
	r, ok := m[source]
	if !ok {
		return nil, errors.New("no such dataset")
	}
	return memHandle{r: r}, nil
}

// rawWriter stores the composite bytes as the file content.
type rawWriter struct{}

func (rawWriter) Write(_ context.Context, path string, _ ports.RasterMetadata, data domain.BandBuffer) error {
	return os.WriteFile(path, data, 0o600)
}

type recordingHandler struct {
	mu     sync.Mutex
	events []StateChangeEvent
}

func (h *recordingHandler) OnStateChange(e StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	reader := memReader{
		"a.tif": {w: 64, h: 64, r: 100, g: 100, b: 100},
		"b.tif": {w: 64, h: 64, r: 0, g: 60, b: 70},
		"c.tif": {w: 64, h: 64, r: 10, g: 20, b: 30},
		"d.tif": {w: 64, h: 64, r: 70, g: 70, b: 60},
	}
	cfg := DefaultConfig()
	cfg.StagingDir = t.TempDir()
	base := []Option{WithReader(reader), WithWriter(rawWriter{}), WithStore(fs.NewStore())}
	svc, err := New(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(DefaultConfig()); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
	cfg := DefaultConfig()
	cfg.Method = "mean"
	if _, err := New(cfg, WithReader(memReader{}), WithWriter(rawWriter{}), WithStore(fs.NewStore())); err == nil {
		t.Error("New() with bad method: error = nil")
	}
}

func TestService_Lifecycle(t *testing.T) {
	h := &recordingHandler{}
	svc := newService(t, WithEventHandler(h))

	if svc.Status() != StateStopped {
		t.Fatalf("Status() = %v", svc.Status())
	}
	if err := svc.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Stop() before Start = %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Errorf("second Start() = %v", err)
	}
	if svc.Status() != StateRunning {
		t.Errorf("Status() = %v, want Running", svc.Status())
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if svc.Status() != StateStopped {
		t.Errorf("Status() = %v, want Stopped", svc.Status())
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) != 4 {
		t.Errorf("events = %+v, want 4 transitions", h.events)
	}
}

func TestService_Process(t *testing.T) {
	svc := newService(t)
	dst := filepath.Join(t.TempDir(), "out", "tile0-0.tif")
	req := Request{
		Datasets:    []string{"a.tif", "b.tif", "c.tif", "d.tif"},
		Window:      domain.NewWindow(0, 0, 2, 2),
		Destination: dst,
	}

	if err := svc.Process(context.Background(), req); !errors.Is(err, domain.ErrNotRunning) {
		t.Fatalf("Process() before Start = %v, want ErrNotRunning", err)
	}

	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	if err := svc.Process(context.Background(), req); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	// valid sums 300, 60, 200 sort to 60, 200, 300: the median is d.tif.
	want := []byte{70, 70, 70, 70, 70, 70, 70, 70, 60, 60, 60, 60}
	if string(got) != string(want) {
		t.Errorf("output = %v, want %v", got, want)
	}
}

func TestService_ProcessOutOfBounds(t *testing.T) {
	svc := newService(t)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	req := Request{
		Datasets:    []string{"a.tif", "b.tif"},
		Window:      domain.NewWindow(60, 0, 10, 10),
		Destination: filepath.Join(t.TempDir(), "t.tif"),
	}
	var oob *domain.WindowOutOfBoundsError
	if err := svc.Process(context.Background(), req); !errors.As(err, &oob) {
		t.Errorf("Process() error = %v, want WindowOutOfBoundsError", err)
	}
	if _, err := os.Stat(req.Destination); !os.IsNotExist(err) {
		t.Error("output uploaded after failure")
	}
}

func TestService_Handler(t *testing.T) {
	m := metrics.New()
	svc := newService(t, WithMetrics(m))
	dst := filepath.Join(t.TempDir(), "tile.tif")
	body := `{"datasets":["a.tif","c.tif"],"window":[0,0,4,4],"destination":"` + dst + `"}`

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/median", strings.NewReader(body)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before Start status = %d, want 503", rec.Code)
	}

	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer svc.Stop()

	rec = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/median", strings.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("output missing: %v", err)
	}

	rec = httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	for _, want := range []string{`mosaic_requests_total{status="ok"} 1`, `mosaic_fetches_total{status="ok"} 2`} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestService_StopsWithContext(t *testing.T) {
	svc := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	for i := 0; i < 100 && svc.Status() != StateStopped; i++ {
		waitABit()
	}
	if svc.Status() != StateStopped {
		t.Errorf("Status() = %v after context cancel, want Stopped", svc.Status())
	}
}

func waitABit() { <-time.After(10 * time.Millisecond) }
