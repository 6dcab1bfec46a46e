package gdal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/airbusgeo/godal"

	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// DefaultDriver is used when EncodingOptions.Driver is empty.
const DefaultDriver = "GTiff"

// DefaultCreationOptions match the tiled LZW layout of the source tiles.
var DefaultCreationOptions = []string{"COMPRESS=LZW", "TILED=YES"}

// Writer encodes composites with a GDAL driver.
type Writer struct{}

// NewWriter returns a Writer. RegisterDrivers must have been called.
func NewWriter() *Writer {
	return &Writer{}
}

// Write creates path with meta.Encoding and fills it with data.
func (w *Writer) Write(ctx context.Context, path string, meta ports.RasterMetadata, data domain.BandBuffer) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if meta.BandCount <= 0 {
		meta.BandCount = domain.Bands
	}
	if want := meta.BandCount * meta.Width * meta.Height; len(data) != want {
		return fmt.Errorf("data holds %d samples, %dx%dx%d needs %d", len(data), meta.Width, meta.Height, meta.BandCount, want)
	}

	var resampling godal.ResamplingAlg
	if meta.Encoding.Overviews {
		if resampling, err = ParseResampling(meta.Encoding.OverviewResampling); err != nil {
			return err
		}
	}

	driver := meta.Encoding.Driver
	if driver == "" {
		driver = DefaultDriver
	}
	var opts []godal.DatasetCreateOption
	if len(meta.Encoding.CreationOptions) > 0 {
		opts = append(opts, godal.CreationOption(meta.Encoding.CreationOptions...))
	}

	ds, err := godal.Create(godal.DriverName(driver), path, meta.BandCount, godal.Byte, meta.Width, meta.Height, opts...)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	defer func() {
		// Close flushes to disk, so its error matters as much as Write's.
		if cerr := ds.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close dataset: %w", cerr))
		}
	}()

	if err := ds.SetGeoTransform(meta.Transform.GDAL()); err != nil {
		return fmt.Errorf("set geotransform: %w", err)
	}
	if meta.Projection != "" {
		if err := ds.SetProjection(meta.Projection); err != nil {
			return fmt.Errorf("set projection: %w", err)
		}
	}
	if err := ds.Write(0, 0, []uint8(data), meta.Width, meta.Height, godal.BandInterleaved()); err != nil {
		return fmt.Errorf("write pixels: %w", err)
	}
	if meta.Encoding.Overviews {
		if err := ds.BuildOverviews(godal.Resampling(resampling)); err != nil {
			return fmt.Errorf("build overviews: %w", err)
		}
	}
	return nil
}

// ParseResampling maps a resampling name to GDAL's algorithm. Empty means
// average.
func ParseResampling(name string) (godal.ResamplingAlg, error) {
	switch strings.ToLower(name) {
	case "", "average":
		return godal.Average, nil
	case "nearest":
		return godal.Nearest, nil
	case "bilinear":
		return godal.Bilinear, nil
	case "cubic":
		return godal.Cubic, nil
	case "cubicspline":
		return godal.CubicSpline, nil
	case "lanczos":
		return godal.Lanczos, nil
	case "mode":
		return godal.Mode, nil
	default:
		return 0, fmt.Errorf("%w: unknown overview resampling %q", domain.ErrInvalidConfig, name)
	}
}
