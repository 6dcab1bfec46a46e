package output

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
	"github.com/tbonfort/be-big-data/internal/preview"
)

// Tile is a finished composite ready to be encoded and uploaded.
type Tile struct {
	Data        domain.BandBuffer
	Width       int
	Height      int
	Transform   domain.GeoTransform // already adjusted to the window origin
	Projection  string
	Destination string
}

// Assembler encodes composites to a staging file and uploads them.
type Assembler struct {
	writer  ports.RasterWriter
	store   ports.ObjectStore
	staging *Staging
	logger  ports.Logger

	uploads     UploadObserver
	previewSize int
	policy      domain.NodataPolicy

	mu       sync.RWMutex
	encoding ports.EncodingOptions
}

// UploadObserver is told the size of every uploaded file.
type UploadObserver interface {
	AddUploadedBytes(n int64)
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithPreview uploads a PNG quicklook whose longest side is at most size
// pixels next to every tile. Pixels rejected by policy are transparent.
func WithPreview(size int, policy domain.NodataPolicy) AssemblerOption {
	return func(a *Assembler) {
		a.previewSize = size
		a.policy = policy
	}
}

// WithUploadObserver reports uploaded sizes to o.
func WithUploadObserver(o UploadObserver) AssemblerOption {
	return func(a *Assembler) {
		a.uploads = o
	}
}

// NewAssembler creates an assembler. encoding is passed to the writer as is.
func NewAssembler(writer ports.RasterWriter, store ports.ObjectStore, staging *Staging, encoding ports.EncodingOptions, logger ports.Logger, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		writer:   writer,
		store:    store,
		staging:  staging,
		logger:   logger,
		encoding: encoding,
		policy:   domain.DefaultNodataPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetEncoding replaces the encoding options used by later calls.
func (a *Assembler) SetEncoding(enc ports.EncodingOptions) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.encoding = enc
}

// Encoding returns the current encoding options.
func (a *Assembler) Encoding() ports.EncodingOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	enc := a.encoding
	enc.CreationOptions = append([]string(nil), a.encoding.CreationOptions...)
	return enc
}

// Assemble writes t to a staging file and uploads it to t.Destination. The
// staging file is removed on every return path. Writer failures come back as
// *domain.WriteError and store failures as *domain.UploadError.
func (a *Assembler) Assemble(ctx context.Context, t Tile) error {
	if len(t.Data) != domain.Bands*t.Width*t.Height {
		return &domain.ShapeMismatchError{Index: 0, Got: len(t.Data), Want: domain.Bands * t.Width * t.Height}
	}

	enc := a.Encoding()
	staged, err := a.staging.NewFile(extensionFor(enc.Driver))
	if err != nil {
		return &domain.WriteError{Path: "staging", Err: err}
	}
	defer a.free(staged)

	meta := ports.RasterMetadata{
		Width:      t.Width,
		Height:     t.Height,
		BandCount:  domain.Bands,
		Transform:  t.Transform,
		Projection: t.Projection,
		Encoding:   enc,
	}
	if err := a.writer.Write(ctx, staged.Path(), meta, t.Data); err != nil {
		return &domain.WriteError{Path: staged.Path(), Err: err}
	}
	if err := a.store.Upload(ctx, staged.Path(), t.Destination); err != nil {
		return &domain.UploadError{Destination: t.Destination, Err: err}
	}
	a.observeUpload(staged)

	if a.previewSize > 0 {
		a.uploadPreview(ctx, t)
	}
	return nil
}

// uploadPreview is best effort: the tile is already published.
func (a *Assembler) uploadPreview(ctx context.Context, t Tile) {
	dst := PreviewDestination(t.Destination)
	if err := a.writePreview(ctx, t, dst); err != nil {
		a.logger.Warn("preview failed",
			ports.Destination(dst),
			ports.Err(err),
		)
	}
}

func (a *Assembler) writePreview(ctx context.Context, t Tile, dst string) error {
	img, err := preview.Quicklook(t.Data, t.Width, t.Height, a.policy, a.previewSize)
	if err != nil {
		return err
	}

	staged, err := a.staging.NewFile(".png")
	if err != nil {
		return err
	}
	defer a.free(staged)

	f, err := staged.Create()
	if err != nil {
		return fmt.Errorf("open preview: %w", err)
	}
	if err := preview.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close preview: %w", err)
	}
	if err := a.store.Upload(ctx, staged.Path(), dst); err != nil {
		return err
	}
	a.observeUpload(staged)
	return nil
}

func (a *Assembler) observeUpload(f *StagedFile) {
	if a.uploads == nil {
		return
	}
	if n, err := f.Size(); err == nil {
		a.uploads.AddUploadedBytes(n)
	}
}

func (a *Assembler) free(f *StagedFile) {
	if err := f.Free(); err != nil {
		a.logger.Warn("failed to remove staging file",
			ports.String("path", f.Path()),
			ports.Err(err),
		)
	}
}

// PreviewDestination derives the quicklook URI from a tile URI by replacing
// the extension of its path with ".png". Query and fragment are kept.
func PreviewDestination(dst string) string {
	u, err := url.Parse(dst)
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return withPNG(dst)
	}
	u.Path = withPNG(u.Path)
	u.RawPath = ""
	return u.String()
}

func withPNG(p string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ".png"
}

func extensionFor(driver string) string {
	switch strings.ToLower(driver) {
	case "", "gtiff", "cog":
		return ".tif"
	case "png":
		return ".png"
	case "jpeg":
		return ".jpg"
	default:
		return ".dat"
	}
}
