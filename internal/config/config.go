// Package config loads and validates the zonesync run configuration. The
// run file is YAML or TOML; ZONESYNC_* environment variables override its
// global settings.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config is the validated runtime configuration.
type Config struct {
	global *GlobalConfig

	// Providers are the provider instances in file order.
	Providers []*ProviderInstanceConfig

	// Zones are the zones to reconcile in file order.
	Zones []*ZoneConfig
}

// Load reads the run file at path, applies environment overrides and
// validates the result. All problems are reported together as a
// *ValidationError.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getEnv("ZONESYNC_CONFIG")
	}
	if path == "" {
		return nil, &ValidationError{Errors: []string{"no configuration file given (use --config or ZONESYNC_CONFIG)"}}
	}

	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, &ValidationError{Errors: []string{"config file: " + err.Error()}}
	}
	slog.Debug("loaded configuration from file", slog.String("path", path))

	return fromFile(fileCfg)
}

// fromFile converts and validates a parsed file.
func fromFile(fileCfg *FileConfig) (*Config, error) {
	errs := validateStruct(fileCfg)

	global, globalErrs := mergeGlobalConfig(fileCfg.ToGlobalConfig())
	errs = append(errs, globalErrs...)

	cfg := &Config{global: global}

	for _, fp := range fileCfg.Providers {
		p, pErrs := convertFileProvider(fp)
		cfg.Providers = append(cfg.Providers, p)
		errs = append(errs, pErrs...)
	}

	for i, fz := range fileCfg.Zones {
		z, zErrs := convertFileZone(i, fz, global.DryRun)
		cfg.Zones = append(cfg.Zones, z)
		errs = append(errs, zErrs...)
	}

	errs = append(errs, validateConfig(cfg)...)

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// LogLevel returns the log level (debug, info, warn, error).
func (c *Config) LogLevel() string { return c.global.LogLevel }

// LogFormat returns the log format (json, text).
func (c *Config) LogFormat() string { return c.global.LogFormat }

// DryRun reports whether no zone may be written.
func (c *Config) DryRun() bool { return c.global.DryRun }

// ReconcileInterval returns the serve mode interval.
func (c *Config) ReconcileInterval() time.Duration { return c.global.ReconcileInterval }

// HealthPort returns the port of the health and metrics server.
func (c *Config) HealthPort() int { return c.global.HealthPort }

// Concurrency returns how many zones are reconciled in parallel.
func (c *Config) Concurrency() int { return c.global.Concurrency }

// SetLogLevel overrides the log level, e.g. from a command line flag.
func (c *Config) SetLogLevel(level string) error {
	level = strings.ToLower(strings.TrimSpace(level))
	if !validLogLevel(level) {
		return fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}
	c.global.LogLevel = level
	return nil
}

// SetLogFormat overrides the log format.
func (c *Config) SetLogFormat(format string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if !validLogFormat(format) {
		return fmt.Errorf("invalid log format %q (must be json or text)", format)
	}
	c.global.LogFormat = format
	return nil
}

// SetConcurrency overrides the zone concurrency.
func (c *Config) SetConcurrency(n int) error {
	if n < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", n)
	}
	c.global.Concurrency = n
	return nil
}

// Provider returns the provider instance with the given name.
func (c *Config) Provider(name string) *ProviderInstanceConfig {
	for _, p := range c.Providers {
		if p.Name == name {
			return p
		}
	}
	return nil
}
