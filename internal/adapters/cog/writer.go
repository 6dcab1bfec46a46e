// Package cog rewrites GeoTIFFs into Cloud Optimized GeoTIFF layout.
package cog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/airbusgeo/cogger"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// rewriteFunc reorders the tiff read from src into COG layout on dst.
type rewriteFunc func(dst *os.File, src *os.File) error

// Writer wraps a GeoTIFF writer. The inner writer encodes to an
// intermediate file next to path, which is then rewritten into path.
type Writer struct {
	inner   ports.RasterWriter
	rewrite rewriteFunc
}

// NewWriter decorates inner, which must produce tiled GeoTIFF with
// internal overviews.
func NewWriter(inner ports.RasterWriter) *Writer {
	return &Writer{
		inner: inner,
		rewrite: func(dst, src *os.File) error {
			return cogger.Rewrite(dst, src)
		},
	}
}

// Write encodes data into path as a COG.
func (w *Writer) Write(ctx context.Context, path string, meta ports.RasterMetadata, data domain.BandBuffer) (err error) {
	tmp := path + ".plain.tif"
	defer os.Remove(tmp)

	if err := w.inner.Write(ctx, tmp, meta, data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(tmp)
	if err != nil {
		return fmt.Errorf("open intermediate: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	if err := w.rewrite(dst, src); err != nil {
		return fmt.Errorf("cog rewrite: %w", err)
	}
	return nil
}
