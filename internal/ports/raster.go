package ports

import (
	"context"

	"github.com/tbonfort/be-big-data/internal/domain"
)

// RasterInfo describes an opened source.
type RasterInfo struct {
	Width      int
	Height     int
	BandCount  int
	Transform  domain.GeoTransform
	Projection string
}

// RasterHandle is an opened raster. Handles are not shared between
// goroutines.
type RasterHandle interface {
	Info() RasterInfo

	// ReadWindow fills buf (len Bands*w.Pixels()) band-major with the
	// samples of w.
	ReadWindow(ctx context.Context, w domain.Window, buf domain.BandBuffer) error

	Close() error
}

// RasterReader opens sources by identifier (path or URI).
type RasterReader interface {
	Open(ctx context.Context, source string) (RasterHandle, error)
}

// EncodingOptions are handed to the writer untouched.
type EncodingOptions struct {
	// Driver is the output format name, e.g. "GTiff".
	Driver string

	// CreationOptions are driver KEY=VALUE options, e.g. "COMPRESS=LZW".
	CreationOptions []string

	// Overviews requests an internal overview pyramid.
	Overviews bool

	// OverviewResampling names the resampling used for overviews.
	OverviewResampling string
}

// RasterMetadata is everything the writer needs besides the pixels.
type RasterMetadata struct {
	Width      int
	Height     int
	BandCount  int
	Transform  domain.GeoTransform
	Projection string
	Encoding   EncodingOptions
}

// RasterWriter encodes a band-major buffer into a file at path.
type RasterWriter interface {
	Write(ctx context.Context, path string, meta RasterMetadata, data domain.BandBuffer) error
}
