package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"

	cogAdapter "github.com/tbonfort/be-big-data/internal/adapters/cog"
	fsAdapter "github.com/tbonfort/be-big-data/internal/adapters/fs"
	gcsAdapter "github.com/tbonfort/be-big-data/internal/adapters/gcs"
	gdalAdapter "github.com/tbonfort/be-big-data/internal/adapters/gdal"
	httpAdapter "github.com/tbonfort/be-big-data/internal/adapters/http"
	logAdapter "github.com/tbonfort/be-big-data/internal/adapters/log"
	"github.com/tbonfort/be-big-data/internal/app"
	"github.com/tbonfort/be-big-data/internal/cliconfig"
	"github.com/tbonfort/be-big-data/internal/metrics"
	"github.com/tbonfort/be-big-data/internal/ports"
	"github.com/tbonfort/be-big-data/pkg/mosaic"
)

// runtimeDeps are the process-wide objects built from a Config.
type runtimeDeps struct {
	logger  *logAdapter.ZerologAdapter
	metrics *metrics.Metrics
	service *mosaic.Service
	close   func()
}

func serviceConfig(cfg cliconfig.Config) mosaic.Config {
	return mosaic.Config{
		PoolSize:        cfg.PoolSize,
		Shards:          cfg.Shards,
		Method:          cfg.Method,
		NodataValues:    cfg.NodataValues,
		StagingDir:      cfg.StagingDir,
		Encoding:        cfg.Encoding(),
		PreviewSize:     cfg.PreviewSize,
		RequestTimeout:  cfg.RequestTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

func build(ctx context.Context, cfg cliconfig.Config) (*runtimeDeps, error) {
	logger, err := logAdapter.New(nil, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if _, err := gdalAdapter.ParseResampling(cfg.OverviewResampling); err != nil {
		return nil, err
	}

	gdalAdapter.RegisterDrivers()
	if cfg.VSIGCS {
		if err := gdalAdapter.RegisterGCS(ctx, gdalAdapter.DefaultVSIOptions()); err != nil {
			logger.Warn("cached gs:// reader unavailable, falling back to /vsigs/", ports.Err(err))
		}
	}

	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	web := httpAdapter.NewStore(nil, logger)
	router := app.NewStoreRouter(fsAdapter.NewStore()).
		Handle("http://", web).
		Handle("https://", web)

	client, err := storage.NewClient(ctx)
	if err != nil {
		logger.Warn("GCS client unavailable, gs:// destinations will fail", ports.Err(err))
		router.Handle(gcsAdapter.Scheme, unavailableStore{err: err})
	} else {
		closers = append(closers, func() { _ = client.Close() })
		router.Handle(gcsAdapter.Scheme, gcsAdapter.NewStore(client, logger))
	}

	var writer ports.RasterWriter = gdalAdapter.NewWriter()
	if cfg.COG {
		writer = cogAdapter.NewWriter(writer)
	}

	m := metrics.New()
	svc, err := mosaic.New(serviceConfig(cfg),
		mosaic.WithReader(gdalAdapter.NewReader()),
		mosaic.WithWriter(writer),
		mosaic.WithStore(router),
		mosaic.WithLogger(logger),
		mosaic.WithMetrics(m),
		mosaic.WithEventHandler(crashReporter{logger: logger}),
	)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("create service: %w", err)
	}
	return &runtimeDeps{logger: logger, metrics: m, service: svc, close: closeAll}, nil
}

type unavailableStore struct {
	err error
}

func (s unavailableStore) Upload(_ context.Context, _, destination string) error {
	return fmt.Errorf("upload %s: %w", destination, s.err)
}

// crashReporter surfaces a failed shutdown at error level.
type crashReporter struct {
	logger ports.Logger
}

func (c crashReporter) OnStateChange(e mosaic.StateChangeEvent) {
	if e.Current == mosaic.StateCrashed {
		c.logger.Error("service crashed", ports.String("reason", e.Reason))
	}
}
