package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// fakeRaster is an in-memory source whose every sample equals fill.
type fakeRaster struct {
	info    ports.RasterInfo
	fill    uint8
	delay   time.Duration
	readErr error
}

// fakeReader serves fakeRasters by name and tracks open handles and
// concurrency.
type fakeReader struct {
	mu      sync.Mutex
	rasters map[string]fakeRaster
	openErr map[string]error

	open    atomic.Int64
	maxOpen atomic.Int64
	closed  atomic.Int64
	reads   atomic.Int64
}

func newFakeReader() *fakeReader {
	return &fakeReader{rasters: map[string]fakeRaster{}, openErr: map[string]error{}}
}

func (r *fakeReader) add(name string, fr fakeRaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rasters[name] = fr
}

func (r *fakeReader) Open(ctx context.Context, source string) (ports.RasterHandle, error) {
	r.mu.Lock()
	fr, ok := r.rasters[source]
	oerr := r.openErr[source]
	r.mu.Unlock()
	if oerr != nil {
		return nil, oerr
	}
	if !ok {
		return nil, fmt.Errorf("%s: no such file", source)
	}

	n := r.open.Add(1)
	for {
		m := r.maxOpen.Load()
		if n <= m || r.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}
	return &fakeHandle{reader: r, raster: fr}, nil
}

type fakeHandle struct {
	reader *fakeReader
	raster fakeRaster
}

func (h *fakeHandle) Info() ports.RasterInfo { return h.raster.info }

func (h *fakeHandle) ReadWindow(ctx context.Context, w domain.Window, buf domain.BandBuffer) error {
	h.reader.reads.Add(1)
	if h.raster.delay > 0 {
		time.Sleep(h.raster.delay)
	}
	if h.raster.readErr != nil {
		return h.raster.readErr
	}
	for i := range buf {
		buf[i] = h.raster.fill
	}
	return nil
}

func (h *fakeHandle) Close() error {
	h.reader.open.Add(-1)
	h.reader.closed.Add(1)
	return nil
}

func rgbInfo(w, h int) ports.RasterInfo {
	return ports.RasterInfo{Width: w, Height: h, BandCount: 3}
}

func TestTileFetcher_Fetch(t *testing.T) {
	reader := newFakeReader()
	reader.add("ok.tif", fakeRaster{info: rgbInfo(100, 100), fill: 42})
	reader.add("four.tif", fakeRaster{info: ports.RasterInfo{Width: 100, Height: 100, BandCount: 4}})
	reader.add("broken.tif", fakeRaster{info: rgbInfo(100, 100), readErr: errors.New("short read")})

	f := NewTileFetcher(reader)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		buf, err := f.Fetch(ctx, "ok.tif", domain.NewWindow(10, 20, 4, 5))
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(buf) != 3*4*5 {
			t.Errorf("len = %d, want 60", len(buf))
		}
		if buf[0] != 42 || buf[len(buf)-1] != 42 {
			t.Errorf("buffer not filled from source")
		}
	})

	t.Run("band count", func(t *testing.T) {
		_, err := f.Fetch(ctx, "four.tif", domain.NewWindow(0, 0, 1, 1))
		var bce *domain.BandCountError
		if !errors.As(err, &bce) || bce.Got != 4 {
			t.Errorf("error = %v, want BandCountError{Got: 4}", err)
		}
	})

	t.Run("x+width out of bounds", func(t *testing.T) {
		_, err := f.Fetch(ctx, "ok.tif", domain.NewWindow(90, 0, 20, 10))
		var oob *domain.WindowOutOfBoundsError
		if !errors.As(err, &oob) {
			t.Fatalf("error = %v, want WindowOutOfBoundsError", err)
		}
		if oob.Width != 100 || oob.Window.X != 90 {
			t.Errorf("WindowOutOfBoundsError = %+v", oob)
		}
	})

	outOfBounds := map[string]domain.Window{
		"negative origin": domain.NewWindow(-1, 0, 2, 2),
		"negative width":  domain.NewWindow(5, 0, -3, 2),
		"negative extent": domain.NewWindow(5, 5, -1, -1),
		"x at max int":    domain.NewWindow(math.MaxInt, 0, 1, 1),
		"y+height wraps":  domain.NewWindow(0, 1, 1, math.MaxInt),
	}
	for name, w := range outOfBounds {
		t.Run(name, func(t *testing.T) {
			before := reader.reads.Load()
			_, err := f.Fetch(ctx, "ok.tif", w)
			var oob *domain.WindowOutOfBoundsError
			if !errors.As(err, &oob) {
				t.Errorf("Fetch(%s) error = %v, want WindowOutOfBoundsError", w, err)
			}
			if reader.reads.Load() != before {
				t.Errorf("Fetch(%s) reached the reader", w)
			}
		})
	}

	t.Run("read error", func(t *testing.T) {
		if _, err := f.Fetch(ctx, "broken.tif", domain.NewWindow(0, 0, 1, 1)); err == nil {
			t.Error("Fetch() error = nil, want read error")
		}
	})

	t.Run("missing source", func(t *testing.T) {
		if _, err := f.Fetch(ctx, "nope.tif", domain.NewWindow(0, 0, 1, 1)); err == nil {
			t.Error("Fetch() error = nil, want open error")
		}
	})

	if open := reader.open.Load(); open != 0 {
		t.Errorf("%d handles left open", open)
	}
}

func TestOrchestrator_PreservesOrderUnderRandomLatency(t *testing.T) {
	reader := newFakeReader()
	rng := rand.New(rand.NewSource(1))
	sources := make([]string, 30)
	for i := range sources {
		sources[i] = fmt.Sprintf("s%02d.tif", i)
		reader.add(sources[i], fakeRaster{
			info:  rgbInfo(8, 8),
			fill:  uint8(i + 1),
			delay: time.Duration(rng.Intn(15)) * time.Millisecond,
		})
	}

	o := NewOrchestrator(NewTileFetcher(reader), NewPool(4), mockLogger{})
	bufs, err := o.FetchAll(context.Background(), sources, domain.NewWindow(0, 0, 8, 8))
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(bufs) != len(sources) {
		t.Fatalf("got %d buffers, want %d", len(bufs), len(sources))
	}
	for i, b := range bufs {
		if b[0] != uint8(i+1) {
			t.Errorf("buffer %d came from source %d", i, b[0]-1)
		}
	}
}

func TestOrchestrator_FirstErrorFailsCall(t *testing.T) {
	reader := newFakeReader()
	sources := []string{"a.tif", "b.tif", "bad.tif", "d.tif"}
	for _, s := range sources {
		reader.add(s, fakeRaster{info: rgbInfo(10, 10), fill: 1, delay: 5 * time.Millisecond})
	}
	reader.add("bad.tif", fakeRaster{info: ports.RasterInfo{Width: 10, Height: 10, BandCount: 1}})

	o := NewOrchestrator(NewTileFetcher(reader), NewPool(2), mockLogger{})
	bufs, err := o.FetchAll(context.Background(), sources, domain.NewWindow(0, 0, 4, 4))
	if bufs != nil {
		t.Errorf("partial result returned: %d buffers", len(bufs))
	}

	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Index != 2 || fe.Source != "bad.tif" {
		t.Errorf("FetchError = %+v, want index 2 bad.tif", fe)
	}
	var bce *domain.BandCountError
	if !errors.As(err, &bce) {
		t.Errorf("FetchError does not wrap BandCountError: %v", err)
	}
	if open := reader.open.Load(); open != 0 {
		t.Errorf("%d handles left open", open)
	}
}

func TestOrchestrator_SharedPoolBoundsConcurrency(t *testing.T) {
	reader := newFakeReader()
	var sources []string
	for i := 0; i < 20; i++ {
		s := fmt.Sprintf("s%d.tif", i)
		sources = append(sources, s)
		reader.add(s, fakeRaster{info: rgbInfo(4, 4), delay: 3 * time.Millisecond})
	}

	pool := NewPool(3)
	o := NewOrchestrator(NewTileFetcher(reader), pool, mockLogger{})

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.FetchAll(context.Background(), sources, domain.NewWindow(0, 0, 4, 4)); err != nil {
				t.Errorf("FetchAll() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if peak := reader.maxOpen.Load(); peak > int64(pool.Size()) {
		t.Errorf("max concurrent opens = %d, pool size %d", peak, pool.Size())
	}
	if closed := reader.closed.Load(); closed != 80 {
		t.Errorf("closed = %d, want 80", closed)
	}
}

func TestOrchestrator_Cancellation(t *testing.T) {
	reader := newFakeReader()
	sources := []string{"a.tif", "b.tif", "c.tif"}
	for _, s := range sources {
		reader.add(s, fakeRaster{info: rgbInfo(4, 4), delay: 20 * time.Millisecond})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(NewTileFetcher(reader), NewPool(1), mockLogger{})
	if _, err := o.FetchAll(ctx, sources, domain.NewWindow(0, 0, 4, 4)); !errors.Is(err, context.Canceled) {
		t.Errorf("FetchAll() error = %v, want context.Canceled", err)
	}
	if closed := reader.closed.Load(); closed != 0 {
		t.Errorf("%d sources opened after cancellation", closed)
	}
}

func TestOrchestrator_EmptySources(t *testing.T) {
	o := NewOrchestrator(NewTileFetcher(newFakeReader()), nil, mockLogger{})
	if _, err := o.FetchAll(context.Background(), nil, domain.NewWindow(0, 0, 1, 1)); !errors.Is(err, domain.ErrNoDatasets) {
		t.Errorf("FetchAll(nil) error = %v, want ErrNoDatasets", err)
	}
}

type countingObserver struct {
	mu     sync.Mutex
	calls  int
	failed int
}

func (c *countingObserver) ObserveFetch(source string, d time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err != nil {
		c.failed++
	}
}

func TestOrchestrator_Observer(t *testing.T) {
	reader := newFakeReader()
	reader.add("a.tif", fakeRaster{info: rgbInfo(4, 4)})
	reader.add("b.tif", fakeRaster{info: rgbInfo(4, 4)})

	obs := &countingObserver{}
	o := NewOrchestrator(NewTileFetcher(reader), NewPool(2), mockLogger{}, WithObserver(obs))
	if _, err := o.FetchAll(context.Background(), []string{"a.tif", "b.tif"}, domain.NewWindow(0, 0, 2, 2)); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if obs.calls != 2 || obs.failed != 0 {
		t.Errorf("observer saw %d calls / %d failures, want 2 / 0", obs.calls, obs.failed)
	}
}

func TestNewPool_Default(t *testing.T) {
	if got := NewPool(0).Size(); got != DefaultPoolSize {
		t.Errorf("NewPool(0).Size() = %d, want %d", got, DefaultPoolSize)
	}
}
