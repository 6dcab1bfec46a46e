package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/tbonfort/be-big-data/internal/adapters/log"
	"github.com/tbonfort/be-big-data/internal/cliconfig"
	"github.com/tbonfort/be-big-data/internal/ports"
)

const helpDescription = `
Build cloud-free median composites from a temporal stack of RGB scenes.

Each request names the co-registered source datasets, a pixel window and a
destination. The worker reads the window from every source in parallel,
takes the per-pixel median of the valid observations, and uploads a
georeferenced GeoTIFF (optionally a COG) to the destination.

Requests arrive over HTTP, either as bare JSON or as Pub/Sub push messages.
`

var exampleUsage = strings.TrimSpace(`
  mosaic serve --listen :8080 --pool-size 10
  mosaic serve --config $HOME/.mosaic/config.yaml --watch-config
  mosaic run --request tile.json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cliState is shared by the subcommands.
type cliState struct {
	cfg     cliconfig.Config
	cfgPath string
}

// load layers the config file and the environment over the flag values.
// It returns the flag snapshot and the changed set too, for reloads.
func (s *cliState) load(cmd *cobra.Command) (cliconfig.Config, string, map[string]bool, error) {
	cfgFile := s.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfg, err := cliconfig.Load(s.cfg, cfgFile, changed)
	if err != nil {
		return cfg, cfgFile, changed, fmt.Errorf("load config: %w", err)
	}
	return cfg, cfgFile, changed, nil
}

func main() {
	st := &cliState{cfg: cliconfig.DefaultConfig()}

	bootLog, _ := logAdapter.New(os.Stderr, logAdapter.FormatConsole, "info")

	root := &cobra.Command{
		Use:          "mosaic",
		Short:        "Median composite worker for multi-temporal RGB rasters",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
	}
	serve := newServeCmd(st)
	root.AddCommand(serve, newRunCmd(st))
	root.RunE = serve.RunE

	f := root.PersistentFlags()
	f.StringVar(&st.cfgPath, "config", "", "path to config file, TOML or YAML (default: $HOME/.mosaic/config.toml)")
	f.StringVar(&st.cfg.ListenAddr, "listen", st.cfg.ListenAddr, "HTTP listen address")
	f.IntVar(&st.cfg.PoolSize, "pool-size", st.cfg.PoolSize, "maximum concurrent source reads across all requests")
	f.IntVar(&st.cfg.Shards, "shards", st.cfg.Shards, "goroutines per composite (0 = GOMAXPROCS)")
	f.StringVar(&st.cfg.Method, "method", st.cfg.Method, "median method: joint or per-band")
	f.IntSliceVar(&st.cfg.NodataValues, "nodata", st.cfg.NodataValues, "sample values that invalidate a pixel")
	f.StringVar(&st.cfg.StagingDir, "staging-dir", st.cfg.StagingDir, "directory for encoded tiles awaiting upload (default: system temp dir)")
	f.StringVar(&st.cfg.Driver, "driver", st.cfg.Driver, "GDAL output driver")
	f.StringSliceVar(&st.cfg.CreationOptions, "creation-option", st.cfg.CreationOptions, "GDAL creation options (KEY=VALUE)")
	f.BoolVar(&st.cfg.Overviews, "overviews", st.cfg.Overviews, "build internal overviews")
	f.StringVar(&st.cfg.OverviewResampling, "overview-resampling", st.cfg.OverviewResampling, "overview resampling algorithm")
	f.BoolVar(&st.cfg.COG, "cog", st.cfg.COG, "rewrite tiles as cloud optimized GeoTIFFs")
	f.IntVar(&st.cfg.PreviewSize, "preview-size", st.cfg.PreviewSize, "upload a PNG preview of at most this many pixels per side (0 = off)")
	f.DurationVar(&st.cfg.RequestTimeout, "request-timeout", st.cfg.RequestTimeout, "deadline for a single request")
	f.DurationVar(&st.cfg.ShutdownTimeout, "shutdown-timeout", st.cfg.ShutdownTimeout, "grace period for in-flight requests on shutdown")
	f.StringVar(&st.cfg.LogLevel, "log-level", st.cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&st.cfg.LogFormat, "log-format", st.cfg.LogFormat, "log format (json or console)")
	f.BoolVar(&st.cfg.VSIGCS, "vsi-gcs", st.cfg.VSIGCS, "serve gs:// sources through a block-cached reader")
	f.BoolVar(&st.cfg.WatchConfig, "watch-config", st.cfg.WatchConfig, "reload log level and encoding when the config file changes")
	if err := f.MarkHidden("shards"); err != nil {
		bootLog.Info("failed to hide shards flag", ports.Err(err))
	}

	if err := root.Execute(); err != nil {
		bootLog.Error("mosaic", ports.Err(err))
		os.Exit(1)
	}
}
