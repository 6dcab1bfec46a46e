package output

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockWriter writes the raw buffer to path and remembers what it was given.
type mockWriter struct {
	err  error
	meta ports.RasterMetadata
	path string
}

func (m *mockWriter) Write(ctx context.Context, path string, meta ports.RasterMetadata, data domain.BandBuffer) error {
	m.meta, m.path = meta, path
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(path, data, 0o600)
}

// mockStore records uploads; it checks that the local file exists when
// called.
type mockStore struct {
	mu      sync.Mutex
	err     error
	uploads map[string]int64
}

func (m *mockStore) Upload(ctx context.Context, localPath, destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	st, err := os.Stat(localPath)
	if err != nil {
		return err
	}
	if m.uploads == nil {
		m.uploads = map[string]int64{}
	}
	m.uploads[destination] = st.Size()
	return nil
}

func testTile() Tile {
	w, h := 4, 2
	data := make(domain.BandBuffer, domain.Bands*w*h)
	for i := range data {
		data[i] = uint8(i + 1)
	}
	return Tile{
		Data:        data,
		Width:       w,
		Height:      h,
		Transform:   domain.GeoTransform{A: 10, C: 120, E: -10, F: 470},
		Projection:  "EPSG:32631",
		Destination: "gs://bucket/results/tile0-0.tif",
	}
}

func testEncoding() ports.EncodingOptions {
	return ports.EncodingOptions{
		Driver:             "GTiff",
		CreationOptions:    []string{"COMPRESS=LZW", "TILED=YES"},
		Overviews:          true,
		OverviewResampling: "average",
	}
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staging dir not empty: %d entries left", len(entries))
	}
}

func TestAssembler_Success(t *testing.T) {
	dir := t.TempDir()
	staging, err := NewStaging(dir)
	if err != nil {
		t.Fatalf("NewStaging: %v", err)
	}

	w := &mockWriter{}
	s := &mockStore{}
	a := NewAssembler(w, s, staging, testEncoding(), mockLogger{})

	tile := testTile()
	if err := a.Assemble(context.Background(), tile); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if got := s.uploads[tile.Destination]; got != int64(len(tile.Data)) {
		t.Errorf("uploaded %d bytes, want %d", got, len(tile.Data))
	}
	if w.meta.Width != 4 || w.meta.Height != 2 || w.meta.BandCount != 3 {
		t.Errorf("metadata = %+v", w.meta)
	}
	if w.meta.Transform != tile.Transform || w.meta.Projection != tile.Projection {
		t.Errorf("georeferencing not passed through: %+v", w.meta)
	}
	if len(w.meta.Encoding.CreationOptions) != 2 || w.meta.Encoding.CreationOptions[0] != "COMPRESS=LZW" {
		t.Errorf("encoding options altered: %+v", w.meta.Encoding)
	}
	assertEmpty(t, dir)
}

func TestAssembler_WriteFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	staging, _ := NewStaging(dir)

	cause := errors.New("disk full")
	s := &mockStore{}
	a := NewAssembler(&mockWriter{err: cause}, s, staging, testEncoding(), mockLogger{})

	err := a.Assemble(context.Background(), testTile())
	var we *domain.WriteError
	if !errors.As(err, &we) || !errors.Is(err, cause) {
		t.Fatalf("Assemble() error = %v, want WriteError wrapping cause", err)
	}
	if len(s.uploads) != 0 {
		t.Errorf("upload attempted after write failure")
	}
	assertEmpty(t, dir)
}

func TestAssembler_UploadFailureCleansUp(t *testing.T) {
	dir := t.TempDir()
	staging, _ := NewStaging(dir)

	cause := errors.New("403 forbidden")
	a := NewAssembler(&mockWriter{}, &mockStore{err: cause}, staging, testEncoding(), mockLogger{})

	err := a.Assemble(context.Background(), testTile())
	var ue *domain.UploadError
	if !errors.As(err, &ue) || !errors.Is(err, cause) {
		t.Fatalf("Assemble() error = %v, want UploadError wrapping cause", err)
	}
	if ue.Destination != "gs://bucket/results/tile0-0.tif" {
		t.Errorf("UploadError.Destination = %q", ue.Destination)
	}
	assertEmpty(t, dir)
}

func TestAssembler_ShapeMismatch(t *testing.T) {
	staging, _ := NewStaging(t.TempDir())
	a := NewAssembler(&mockWriter{}, &mockStore{}, staging, testEncoding(), mockLogger{})

	tile := testTile()
	tile.Width = 5
	var sme *domain.ShapeMismatchError
	if err := a.Assemble(context.Background(), tile); !errors.As(err, &sme) {
		t.Errorf("Assemble() error = %v, want ShapeMismatchError", err)
	}
}

func TestAssembler_Preview(t *testing.T) {
	dir := t.TempDir()
	staging, _ := NewStaging(dir)

	s := &mockStore{}
	a := NewAssembler(&mockWriter{}, s, staging, testEncoding(), mockLogger{},
		WithPreview(2, domain.DefaultNodataPolicy()))

	if err := a.Assemble(context.Background(), testTile()); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if _, ok := s.uploads["gs://bucket/results/tile0-0.png"]; !ok {
		t.Errorf("preview not uploaded; uploads = %v", s.uploads)
	}
	assertEmpty(t, dir)
}

func TestAssembler_SetEncoding(t *testing.T) {
	staging, _ := NewStaging(t.TempDir())
	w := &mockWriter{}
	a := NewAssembler(w, &mockStore{}, staging, testEncoding(), mockLogger{})

	a.SetEncoding(ports.EncodingOptions{Driver: "GTiff", CreationOptions: []string{"COMPRESS=DEFLATE"}})
	if err := a.Assemble(context.Background(), testTile()); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if w.meta.Encoding.CreationOptions[0] != "COMPRESS=DEFLATE" || w.meta.Encoding.Overviews {
		t.Errorf("encoding = %+v, want reloaded options", w.meta.Encoding)
	}
}

func TestStagedFile_FreeIsIdempotent(t *testing.T) {
	staging, _ := NewStaging(t.TempDir())
	f, err := staging.NewFile(".tif")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if !f.Exists() {
		t.Fatal("staged file was not created")
	}
	if err := f.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := f.Free(); err != nil {
		t.Errorf("second Free: %v", err)
	}
	if f.Exists() {
		t.Error("staged file still exists")
	}
}

func TestStaging_UniqueNames(t *testing.T) {
	staging, _ := NewStaging(t.TempDir())
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		f, err := staging.NewFile(".tif")
		if err != nil {
			t.Fatalf("NewFile: %v", err)
		}
		if seen[f.Path()] {
			t.Fatalf("duplicate staging path %s", f.Path())
		}
		seen[f.Path()] = true
		defer f.Free()
	}
}

func TestPreviewDestination(t *testing.T) {
	tests := map[string]string{
		"gs://b/results/tile0-512.tif": "gs://b/results/tile0-512.png",
		"/data/out/mosaic.tiff":        "/data/out/mosaic.png",
		"noext":                        "noext.png",
		"https://h/a/tile.tif?X-Amz-Signature=ab.cd&X-Amz-Expires=60": "https://h/a/tile.png?X-Amz-Signature=ab.cd&X-Amz-Expires=60",
		"http://h/tile.tif#frag":       "http://h/tile.png#frag",
	}
	for in, want := range tests {
		if got := PreviewDestination(in); got != want {
			t.Errorf("PreviewDestination(%q) = %q, want %q", in, got, want)
		}
	}
}

type byteCounter struct{ n int64 }

func (b *byteCounter) AddUploadedBytes(n int64) { b.n += n }

func TestAssembler_UploadObserver(t *testing.T) {
	staging, _ := NewStaging(t.TempDir())
	counter := &byteCounter{}
	a := NewAssembler(&mockWriter{}, &mockStore{}, staging, testEncoding(), mockLogger{},
		WithUploadObserver(counter))

	tile := testTile()
	if err := a.Assemble(context.Background(), tile); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if counter.n != int64(len(tile.Data)) {
		t.Errorf("observed %d bytes, want %d", counter.n, len(tile.Data))
	}
}
