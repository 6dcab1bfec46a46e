package cliconfig

import "os"

// ApplyEnvConfig applies MOSAIC_* environment variables to cfg, skipping
// values whose flag was set explicitly. PORT, as set by Cloud Run, is used
// when MOSAIC_LISTEN_ADDR is not.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if port := os.Getenv("PORT"); port != "" && os.Getenv("MOSAIC_LISTEN_ADDR") == "" {
		s.setString("listen", ":"+port, &cfg.ListenAddr)
	}
	s.setString("listen", os.Getenv("MOSAIC_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("method", os.Getenv("MOSAIC_METHOD"), &cfg.Method)
	s.setString("staging-dir", os.Getenv("MOSAIC_STAGING_DIR"), &cfg.StagingDir)
	s.setString("driver", os.Getenv("MOSAIC_DRIVER"), &cfg.Driver)
	s.setString("overview-resampling", os.Getenv("MOSAIC_OVERVIEW_RESAMPLING"), &cfg.OverviewResampling)
	s.setString("log-level", os.Getenv("MOSAIC_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("MOSAIC_LOG_FORMAT"), &cfg.LogFormat)

	s.setListFromString("creation-option", os.Getenv("MOSAIC_CREATION_OPTIONS"), &cfg.CreationOptions)
	if err := s.setIntsFromString("nodata", os.Getenv("MOSAIC_NODATA_VALUES"), &cfg.NodataValues); err != nil {
		return err
	}

	if err := s.setIntFromString("pool-size", os.Getenv("MOSAIC_POOL_SIZE"), &cfg.PoolSize); err != nil {
		return err
	}
	if err := s.setIntFromString("shards", os.Getenv("MOSAIC_SHARDS"), &cfg.Shards); err != nil {
		return err
	}
	if err := s.setIntFromString("preview-size", os.Getenv("MOSAIC_PREVIEW_SIZE"), &cfg.PreviewSize); err != nil {
		return err
	}

	if err := s.setDuration("request-timeout", os.Getenv("MOSAIC_REQUEST_TIMEOUT"), &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("MOSAIC_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setBoolFromString("overviews", os.Getenv("MOSAIC_OVERVIEWS"), &cfg.Overviews)
	s.setBoolFromString("cog", os.Getenv("MOSAIC_COG"), &cfg.COG)
	s.setBoolFromString("vsi-gcs", os.Getenv("MOSAIC_VSI_GCS"), &cfg.VSIGCS)
	s.setBoolFromString("watch-config", os.Getenv("MOSAIC_WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
