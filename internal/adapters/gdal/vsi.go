package gdal

import (
	"context"
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/airbusgeo/osio"
	"github.com/airbusgeo/osio/gcs"
)

// GCSPrefix is the VSI prefix served by the osio handler.
const GCSPrefix = "gs://"

var registerOnce sync.Once

// RegisterDrivers registers GDAL's built-in drivers. Safe to call repeatedly.
func RegisterDrivers() {
	registerOnce.Do(godal.RegisterInternalDrivers)
}

// VSIOptions tunes the block cache in front of Cloud Storage.
type VSIOptions struct {
	BlockSize       string
	NumCachedBlocks int
}

// DefaultVSIOptions are 64k blocks with a 1000 block cache.
func DefaultVSIOptions() VSIOptions {
	return VSIOptions{BlockSize: "64k", NumCachedBlocks: 1000}
}

// RegisterGCS routes gs:// dataset names through a cached osio reader so
// tiles are fetched with ranged reads shared across datasets.
func RegisterGCS(ctx context.Context, opts VSIOptions) error {
	handler, err := gcs.Handle(ctx)
	if err != nil {
		return fmt.Errorf("gcs handler: %w", err)
	}
	adapter, err := osio.NewAdapter(handler,
		osio.BlockSize(opts.BlockSize),
		osio.NumCachedBlocks(opts.NumCachedBlocks),
	)
	if err != nil {
		return fmt.Errorf("osio adapter: %w", err)
	}
	if err := godal.RegisterVSIHandler(GCSPrefix, adapter); err != nil {
		return fmt.Errorf("register %s: %w", GCSPrefix, err)
	}
	return nil
}
