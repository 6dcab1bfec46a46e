package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config with string durations and optional booleans,
// so absent keys leave the current value alone.
type FileConfig struct {
	ListenAddr         string   `toml:"listen_addr" yaml:"listen_addr"`
	PoolSize           int      `toml:"pool_size" yaml:"pool_size"`
	Shards             int      `toml:"shards" yaml:"shards"`
	Method             string   `toml:"method" yaml:"method"`
	NodataValues       []int    `toml:"nodata_values" yaml:"nodata_values"`
	StagingDir         string   `toml:"staging_dir" yaml:"staging_dir"`
	Driver             string   `toml:"driver" yaml:"driver"`
	CreationOptions    []string `toml:"creation_options" yaml:"creation_options"`
	Overviews          *bool    `toml:"overviews" yaml:"overviews"`
	OverviewResampling string   `toml:"overview_resampling" yaml:"overview_resampling"`
	COG                *bool    `toml:"cog" yaml:"cog"`
	PreviewSize        int      `toml:"preview_size" yaml:"preview_size"`
	RequestTimeout     string   `toml:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout    string   `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string   `toml:"log_level" yaml:"log_level"`
	LogFormat          string   `toml:"log_format" yaml:"log_format"`
	VSIGCS             *bool    `toml:"vsi_gcs" yaml:"vsi_gcs"`
	WatchConfig        *bool    `toml:"watch_config" yaml:"watch_config"`
}

// LoadFileConfig reads path as YAML when its extension is .yaml or .yml and
// as TOML otherwise.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.mosaic/config.toml, or "" without a home
// directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mosaic", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies fc to cfg, skipping values whose flag was set
// explicitly.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("method", fc.Method, &cfg.Method)
	s.setString("staging-dir", fc.StagingDir, &cfg.StagingDir)
	s.setString("driver", fc.Driver, &cfg.Driver)
	s.setString("overview-resampling", fc.OverviewResampling, &cfg.OverviewResampling)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setInts("nodata", fc.NodataValues, &cfg.NodataValues)
	s.setStrings("creation-option", fc.CreationOptions, &cfg.CreationOptions)

	s.setInt("pool-size", fc.PoolSize, &cfg.PoolSize)
	s.setInt("shards", fc.Shards, &cfg.Shards)
	s.setInt("preview-size", fc.PreviewSize, &cfg.PreviewSize)

	if err := s.setDuration("request-timeout", fc.RequestTimeout, &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setBool("overviews", fc.Overviews, &cfg.Overviews)
	s.setBool("cog", fc.COG, &cfg.COG)
	s.setBool("vsi-gcs", fc.VSIGCS, &cfg.VSIGCS)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Load layers the config file at path (skipped when empty or missing) and
// the environment over base, then validates. base normally holds the
// defaults overwritten by command-line flags, and changed names those flags.
func Load(base Config, path string, changed map[string]bool) (Config, error) {
	cfg := base
	cfg.NodataValues = append([]int(nil), base.NodataValues...)
	cfg.CreationOptions = append([]string(nil), base.CreationOptions...)

	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return cfg, err
		}
		if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
