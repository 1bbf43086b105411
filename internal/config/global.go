package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Global configuration defaults.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultDryRun            = false
	DefaultReconcileInterval = 5 * time.Minute
	DefaultHealthPort        = 8080
	DefaultConcurrency       = 4
)

// GlobalConfig holds application-wide settings.
type GlobalConfig struct {
	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Behavior
	DryRun            bool          // If true, no zone is written
	ReconcileInterval time.Duration // How often serve mode reconciles
	HealthPort        int           // Port for health/metrics endpoints
	Concurrency       int           // Zones reconciled in parallel

	// rawInterval is the interval as written in the file, kept for validation.
	rawInterval string
}

func validLogLevel(s string) bool {
	switch s {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func validLogFormat(s string) bool {
	return s == "json" || s == "text"
}

// mergeGlobalConfig validates the file values and merges ZONESYNC_*
// environment overrides into them. Environment variables always take
// precedence over the file.
func mergeGlobalConfig(base *GlobalConfig) (*GlobalConfig, []string) {
	var errs []string
	cfg := *base

	if cfg.rawInterval != "" {
		if interval, err := time.ParseDuration(cfg.rawInterval); err != nil {
			errs = append(errs, fmt.Sprintf("reconciler.interval: invalid duration %q (use format like 60s, 5m)", cfg.rawInterval))
		} else if interval < time.Second {
			errs = append(errs, "reconciler.interval: must be at least 1s")
		}
	}

	if v := getEnv("ZONESYNC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
		if !validLogLevel(cfg.LogLevel) {
			errs = append(errs, fmt.Sprintf("ZONESYNC_LOG_LEVEL: invalid value %q (must be debug, info, warn, or error)", v))
		}
	} else if !validLogLevel(cfg.LogLevel) {
		errs = append(errs, fmt.Sprintf("logging.level: invalid value %q (must be debug, info, warn, or error)", cfg.LogLevel))
	}

	if v := getEnv("ZONESYNC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
		if !validLogFormat(cfg.LogFormat) {
			errs = append(errs, fmt.Sprintf("ZONESYNC_LOG_FORMAT: invalid value %q (must be json or text)", v))
		}
	} else if !validLogFormat(cfg.LogFormat) {
		errs = append(errs, fmt.Sprintf("logging.format: invalid value %q (must be json or text)", cfg.LogFormat))
	}

	if v := getEnv("ZONESYNC_DRY_RUN"); v != "" {
		cfg.DryRun = parseBool(v, cfg.DryRun)
	}

	if v := getEnv("ZONESYNC_RECONCILE_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil && interval >= time.Second {
			cfg.ReconcileInterval = interval
		} else {
			errs = append(errs, fmt.Sprintf("ZONESYNC_RECONCILE_INTERVAL: invalid duration %q (at least 1s, e.g. 60s, 5m)", v))
		}
	}

	if v := getEnv("ZONESYNC_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port >= 1 && port <= 65535 {
			cfg.HealthPort = port
		} else {
			errs = append(errs, fmt.Sprintf("ZONESYNC_HEALTH_PORT: invalid port number %q", v))
		}
	}

	if v := getEnv("ZONESYNC_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			cfg.Concurrency = n
		} else {
			errs = append(errs, fmt.Sprintf("ZONESYNC_CONCURRENCY: must be a positive integer, got %q", v))
		}
	}

	return &cfg, errs
}
