package hetzner

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultURL is the Hetzner DNS API base URL.
const DefaultURL = "https://dns.hetzner.com/api/v1"

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 100

// Config holds Hetzner-specific configuration.
type Config struct {
	URL      string // API base URL (defaults to DefaultURL)
	Token    string // Auth-API-Token
	PageSize int    // records per page when listing
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
	if c.PageSize < 1 || c.PageSize > 1000 {
		errs = append(errs, "PAGE_SIZE must be between 1 and 1000")
	}

	if len(errs) > 0 {
		return fmt.Errorf("hetzner config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfigFromMap creates a Config from a provider instance map.
//
// Required keys: TOKEN
// Optional keys: URL (defaults to DefaultURL), PAGE_SIZE (defaults to 100)
func LoadConfigFromMap(instanceName string, configMap map[string]string) (*Config, error) {
	config := &Config{
		URL:      strings.TrimSuffix(configMap["URL"], "/"),
		Token:    configMap["TOKEN"],
		PageSize: DefaultPageSize,
	}
	if config.URL == "" {
		config.URL = DefaultURL
	}

	if v, ok := configMap["PAGE_SIZE"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PAGE_SIZE value %q: %w", v, err)
		}
		config.PageSize = n
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	return config, nil
}
