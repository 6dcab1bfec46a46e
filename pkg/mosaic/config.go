package mosaic

import (
	"fmt"
	"time"

	"github.com/tbonfort/be-big-data/internal/compositor"
	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/fetch"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// EncodingOptions are passed untouched to the raster writer.
type EncodingOptions = ports.EncodingOptions

// Config configures a Service.
type Config struct {
	// PoolSize bounds concurrent source reads across all requests.
	PoolSize int

	// Shards splits one composite across goroutines. Zero means GOMAXPROCS.
	Shards int

	// Method is "joint" (default) or "per-band".
	Method string

	// NodataValues are the sample values that invalidate a pixel.
	NodataValues []int

	// StagingDir holds encoded tiles until they are uploaded. Empty means
	// the system temporary directory.
	StagingDir string

	Encoding EncodingOptions

	// PreviewSize enables a PNG quicklook of at most this many pixels per
	// side, uploaded next to each tile. Zero disables it.
	PreviewSize int

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		PoolSize:     fetch.DefaultPoolSize,
		Method:       compositor.MethodJoint.String(),
		NodataValues: []int{int(domain.NodataValue), int(domain.SaturatedValue)},
		Encoding: EncodingOptions{
			Driver:             "GTiff",
			CreationOptions:    []string{"COMPRESS=LZW", "TILED=YES"},
			Overviews:          true,
			OverviewResampling: "average",
		},
		RequestTimeout:  10 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.PoolSize == 0 {
		c.PoolSize = d.PoolSize
	}
	if c.Method == "" {
		c.Method = d.Method
	}
	if c.NodataValues == nil {
		c.NodataValues = d.NodataValues
	}
	if c.Encoding.Driver == "" {
		c.Encoding = d.Encoding
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.PoolSize < 0 {
		return fmt.Errorf("%w: pool size must be positive", domain.ErrInvalidConfig)
	}
	if c.Shards < 0 {
		return fmt.Errorf("%w: shards must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := compositor.ParseMethod(c.Method); err != nil {
		return err
	}
	if _, err := domain.ParseNodataValues(c.NodataValues); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if c.PreviewSize < 0 || c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: negative size or timeout", domain.ErrInvalidConfig)
	}
	return nil
}
