// Package gdal reads and writes rasters through the GDAL library.
package gdal

import (
	"context"
	"fmt"

	"github.com/airbusgeo/godal"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// Reader opens GDAL datasets. Sources are any name GDAL accepts, including
// /vsigs/ and registered VSI prefixes.
type Reader struct{}

// NewReader returns a Reader. RegisterDrivers must have been called.
func NewReader() *Reader {
	return &Reader{}
}

// Open opens source read-only.
func (r *Reader) Open(ctx context.Context, source string) (ports.RasterHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := godal.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	st := ds.Structure()
	info := ports.RasterInfo{
		Width:      st.SizeX,
		Height:     st.SizeY,
		BandCount:  st.NBands,
		Projection: ds.Projection(),
	}
	// A dataset without a transform keeps the zero value.
	if gt, err := ds.GeoTransform(); err == nil {
		info.Transform = domain.GeoTransformFromGDAL(gt)
	}
	return &handle{ds: ds, info: info}, nil
}

type handle struct {
	ds   *godal.Dataset
	info ports.RasterInfo
}

func (h *handle) Info() ports.RasterInfo {
	return h.info
}

// ReadWindow reads all bands band-interleaved, which is the band-major layout
// of domain.BandBuffer.
func (h *handle) ReadWindow(ctx context.Context, w domain.Window, buf domain.BandBuffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(buf) != domain.Bands*w.Pixels() {
		return fmt.Errorf("read buffer holds %d samples, window %s needs %d", len(buf), w, domain.Bands*w.Pixels())
	}
	return h.ds.Read(w.X, w.Y, []uint8(buf), w.Width, w.Height, godal.BandInterleaved())
}

func (h *handle) Close() error {
	return h.ds.Close()
}
