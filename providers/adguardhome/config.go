package adguardhome

import (
	"fmt"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
)

// Config holds AdGuardHome-specific configuration.
type Config struct {
	URL      string // AdGuardHome base URL (e.g., http://adguard.local:3000)
	Username string // admin user for basic auth
	Password string // admin password for basic auth
	Zone     string // zone whose rewrites are managed
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.URL == "" {
		errs = append(errs, "URL is required")
	} else if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		errs = append(errs, "URL must start with http:// or https://")
	}
	if c.Username == "" {
		errs = append(errs, "USERNAME is required")
	}
	if c.Password == "" {
		errs = append(errs, "PASSWORD is required")
	}
	if c.Zone == "" {
		errs = append(errs, "ZONE is required")
	} else if _, err := dnsname.NormalizeName(c.Zone); err != nil {
		errs = append(errs, fmt.Sprintf("ZONE is invalid: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("adguardhome config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfigFromMap creates a Config from a provider instance map.
//
// Required keys: URL, USERNAME, PASSWORD, ZONE
func LoadConfigFromMap(instanceName string, configMap map[string]string) (*Config, error) {
	config := &Config{
		URL:      strings.TrimSuffix(configMap["URL"], "/"),
		Username: configMap["USERNAME"],
		Password: configMap["PASSWORD"],
		Zone:     configMap["ZONE"],
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	return config, nil
}
