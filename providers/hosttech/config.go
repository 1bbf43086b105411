package hosttech

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultURL is the Hosttech DNS API base URL.
const DefaultURL = "https://api.ns1.hosttech.eu/api/user/v1"

// DefaultTTL is the TTL used for records created without one.
const DefaultTTL = 3600

// Config holds Hosttech-specific configuration.
type Config struct {
	URL   string // API base URL (defaults to DefaultURL)
	Token string // Bearer token
	TTL   int    // TTL for records without explicit TTL
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.URL == "" {
		errs = append(errs, "URL is required")
	} else if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		errs = append(errs, "URL must start with http:// or https://")
	}
	if c.Token == "" {
		errs = append(errs, "TOKEN is required")
	}
	if c.TTL < 1 {
		errs = append(errs, "TTL must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("hosttech config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfigFromMap creates a Config from a provider instance map.
//
// Required keys: TOKEN
// Optional keys: URL (defaults to DefaultURL), TTL (defaults to 3600)
func LoadConfigFromMap(instanceName string, configMap map[string]string) (*Config, error) {
	config := &Config{
		URL:   strings.TrimSuffix(configMap["URL"], "/"),
		Token: configMap["TOKEN"],
		TTL:   DefaultTTL,
	}
	if config.URL == "" {
		config.URL = DefaultURL
	}

	if ttlStr, ok := configMap["TTL"]; ok && ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL value %q: %w", ttlStr, err)
		}
		config.TTL = ttl
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	return config, nil
}
