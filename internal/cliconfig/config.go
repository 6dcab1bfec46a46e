package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	logAdapter "github.com/tbonfort/be-big-data/internal/adapters/log"
	"github.com/tbonfort/be-big-data/internal/compositor"
	"github.com/tbonfort/be-big-data/internal/domain"
	"github.com/tbonfort/be-big-data/internal/fetch"
	"github.com/tbonfort/be-big-data/internal/ports"
)

// DefaultListenAddr is used when neither a flag, MOSAIC_LISTEN_ADDR nor
// PORT is set.
const DefaultListenAddr = ":8080"

// Config holds the worker configuration.
type Config struct {
	ListenAddr string

	PoolSize     int
	Shards       int
	Method       string
	NodataValues []int

	StagingDir         string
	Driver             string
	CreationOptions    []string
	Overviews          bool
	OverviewResampling string
	COG                bool
	PreviewSize        int

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	VSIGCS      bool
	WatchConfig bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         DefaultListenAddr,
		PoolSize:           fetch.DefaultPoolSize,
		Method:             compositor.MethodJoint.String(),
		NodataValues:       []int{int(domain.NodataValue), int(domain.SaturatedValue)},
		Driver:             "GTiff",
		CreationOptions:    []string{"COMPRESS=LZW", "TILED=YES"},
		Overviews:          true,
		OverviewResampling: "average",
		COG:                true,
		RequestTimeout:     10 * time.Minute,
		ShutdownTimeout:    30 * time.Second,
		LogLevel:           "info",
		LogFormat:          logAdapter.FormatJSON,
		VSIGCS:             true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen address is required", domain.ErrInvalidConfig)
	}
	if c.PoolSize <= 0 {
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
	if c.PreviewSize < 0 {
		return fmt.Errorf("%w: preview size must not be negative", domain.ErrInvalidConfig)
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", domain.ErrInvalidConfig)
	}
	if _, err := logAdapter.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	switch c.LogFormat {
	case "", logAdapter.FormatConsole, logAdapter.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log format %q", domain.ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Encoding returns the writer options.
func (c Config) Encoding() ports.EncodingOptions {
	return ports.EncodingOptions{
		Driver:             c.Driver,
		CreationOptions:    append([]string(nil), c.CreationOptions...),
		Overviews:          c.Overviews,
		OverviewResampling: c.OverviewResampling,
	}
}

// NodataPolicy returns the policy built from NodataValues. Call Validate
// first.
func (c Config) NodataPolicy() domain.NodataPolicy {
	p, err := domain.ParseNodataValues(c.NodataValues)
	if err != nil {
		return domain.DefaultNodataPolicy()
	}
	return p
}

// CompositeMethod returns the parsed Method. Call Validate first.
func (c Config) CompositeMethod() compositor.Method {
	m, _ := compositor.ParseMethod(c.Method)
	return m
}

// configSetter applies values unless the matching flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

func (s *configSetter) setInts(flag string, value []int, dst *[]int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = append([]int(nil), value...)
}

// setDuration parses and sets a duration if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setListFromString splits a comma separated environment value.
func (s *configSetter) setListFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = splitList(value)
}

func (s *configSetter) setIntsFromString(flag, value string, dst *[]int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	parts := splitList(value)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", flag, err)
		}
		out = append(out, i)
	}
	*dst = out
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
