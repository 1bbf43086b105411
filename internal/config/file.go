package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the run file. YAML and TOML share the structure.
type FileConfig struct {
	// Logging configuration
	Logging *FileLoggingConfig `yaml:"logging,omitempty" toml:"logging,omitempty"`

	// Reconciler settings
	Reconciler *FileReconcilerConfig `yaml:"reconciler,omitempty" toml:"reconciler,omitempty"`

	// Health and metrics server
	Server *FileServerConfig `yaml:"server,omitempty" toml:"server,omitempty"`

	// DNS providers
	Providers []FileProviderConfig `yaml:"providers" toml:"providers" validate:"required,min=1,dive"`

	// Zones to reconcile
	Zones []FileZoneConfig `yaml:"zones" toml:"zones" validate:"required,min=1,dive"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`   // debug, info, warn, error
	Format string `yaml:"format,omitempty" toml:"format,omitempty"` // json, text
}

// FileReconcilerConfig holds reconciliation settings.
type FileReconcilerConfig struct {
	Interval    string `yaml:"interval,omitempty" toml:"interval,omitempty"`                                  // Go duration format (e.g., "60s", "5m")
	DryRun      *bool  `yaml:"dry_run,omitempty" toml:"dry_run,omitempty"`                                    // Pointer to distinguish unset from false
	Concurrency *int   `yaml:"concurrency,omitempty" toml:"concurrency,omitempty" validate:"omitempty,min=1"` // Zones reconciled in parallel
}

// FileServerConfig holds health/metrics server settings.
type FileServerConfig struct {
	Port int `yaml:"port,omitempty" toml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
}

// FileProviderConfig holds configuration for a DNS provider instance.
type FileProviderConfig struct {
	Name   string            `yaml:"name" toml:"name" validate:"required,instancename"` // Unique instance name
	Type   string            `yaml:"type" toml:"type" validate:"required"`              // hetzner, hosttech, adguardhome, rfc2136
	Config map[string]string `yaml:"config,omitempty" toml:"config,omitempty"`          // Provider-specific settings
}

// FileZoneConfig describes one zone to reconcile.
type FileZoneConfig struct {
	Provider string `yaml:"provider" toml:"provider" validate:"required"`

	// Exactly one of Zone and ZoneID.
	Zone   string `yaml:"zone,omitempty" toml:"zone,omitempty" validate:"required_without=ZoneID,excluded_with=ZoneID"`
	ZoneID string `yaml:"zone_id,omitempty" toml:"zone_id,omitempty" validate:"required_without=Zone"`

	// State is a local path or sftp:// URL of the desired-state document.
	State       string `yaml:"state" toml:"state" validate:"required"`
	StateFormat string `yaml:"state_format,omitempty" toml:"state_format,omitempty" validate:"omitempty,oneof=yaml yml toml zone zonefile bind"`

	Prune                  *bool  `yaml:"prune,omitempty" toml:"prune,omitempty"`
	OnExisting             string `yaml:"on_existing,omitempty" toml:"on_existing,omitempty" validate:"omitempty,oneof=replace keep_and_fail keep_and_warn keep"`
	BulkOperationThreshold *int   `yaml:"bulk_operation_threshold,omitempty" toml:"bulk_operation_threshold,omitempty" validate:"omitempty,min=1"`
	TXTTransformation      string `yaml:"txt_transformation,omitempty" toml:"txt_transformation,omitempty" validate:"omitempty,oneof=api quoted unquoted"`
	TXTCharacterEncoding   string `yaml:"txt_character_encoding,omitempty" toml:"txt_character_encoding,omitempty" validate:"omitempty,oneof=decimal octal"`
	DryRun                 *bool  `yaml:"dry_run,omitempty" toml:"dry_run,omitempty"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// interpolateEnvVars interpolates environment variables in all string
// fields of the config structure.
func (c *FileConfig) interpolateEnvVars() {
	if c.Logging != nil {
		c.Logging.Level = InterpolateEnvVars(c.Logging.Level)
		c.Logging.Format = InterpolateEnvVars(c.Logging.Format)
	}

	if c.Reconciler != nil {
		c.Reconciler.Interval = InterpolateEnvVars(c.Reconciler.Interval)
	}

	for i := range c.Providers {
		p := &c.Providers[i]
		p.Name = InterpolateEnvVars(p.Name)
		p.Type = InterpolateEnvVars(p.Type)
		for k, v := range p.Config {
			p.Config[k] = InterpolateEnvVars(v)
		}
	}

	for i := range c.Zones {
		z := &c.Zones[i]
		z.Provider = InterpolateEnvVars(z.Provider)
		z.Zone = InterpolateEnvVars(z.Zone)
		z.ZoneID = InterpolateEnvVars(z.ZoneID)
		z.State = InterpolateEnvVars(z.State)
		z.StateFormat = InterpolateEnvVars(z.StateFormat)
		z.OnExisting = InterpolateEnvVars(z.OnExisting)
		z.TXTTransformation = InterpolateEnvVars(z.TXTTransformation)
		z.TXTCharacterEncoding = InterpolateEnvVars(z.TXTCharacterEncoding)
	}
}

// LoadFile reads and parses a run file. Files ending in .toml are TOML;
// everything else is YAML. Environment variables in ${VAR} format are
// interpolated after parsing.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing TOML config: unknown key %s", undecoded[0])
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// ToGlobalConfig converts file config to GlobalConfig, applying defaults.
// Values from file take precedence over defaults; env vars override later.
func (c *FileConfig) ToGlobalConfig() *GlobalConfig {
	cfg := &GlobalConfig{
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
		DryRun:            DefaultDryRun,
		ReconcileInterval: DefaultReconcileInterval,
		HealthPort:        DefaultHealthPort,
		Concurrency:       DefaultConcurrency,
	}

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
	}

	if c.Reconciler != nil {
		if c.Reconciler.DryRun != nil {
			cfg.DryRun = *c.Reconciler.DryRun
		}
		if c.Reconciler.Interval != "" {
			cfg.rawInterval = c.Reconciler.Interval
			if interval, err := time.ParseDuration(c.Reconciler.Interval); err == nil {
				cfg.ReconcileInterval = interval
			}
		}
		if c.Reconciler.Concurrency != nil {
			cfg.Concurrency = *c.Reconciler.Concurrency
		}
	}

	if c.Server != nil && c.Server.Port > 0 {
		cfg.HealthPort = c.Server.Port
	}

	return cfg
}
