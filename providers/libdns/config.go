package libdns

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// DefaultTTL is applied to records without a TTL. libdns has no notion of
// a provider default.
const DefaultTTL = 3600

// Options configures the adapter independently of the wrapped backend.
type Options struct {
	// Zone is reported by ListZones when the backend cannot list zones.
	Zone string

	// DefaultTTL in seconds for records without a TTL.
	DefaultTTL int

	// SupportedTypes restricts the manageable record types. Empty means any.
	SupportedTypes []provider.RecordType
}

// Validate checks the options.
func (o *Options) Validate() error {
	var errs []string

	if o.Zone != "" {
		if _, err := dnsname.NormalizeName(o.Zone); err != nil {
			errs = append(errs, fmt.Sprintf("ZONE is invalid: %v", err))
		}
	}
	if o.DefaultTTL < 0 {
		errs = append(errs, "DEFAULT_TTL must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("libdns config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OptionsFromMap reads the adapter keys of a provider instance map.
//
// Optional keys: ZONE, DEFAULT_TTL (seconds, default 3600), TYPES (comma-separated)
func OptionsFromMap(instanceName string, configMap map[string]string) (*Options, error) {
	opts := &Options{
		Zone:       strings.TrimSpace(configMap["ZONE"]),
		DefaultTTL: DefaultTTL,
	}

	if ttlStr := configMap["DEFAULT_TTL"]; ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: invalid DEFAULT_TTL value %q: %w", instanceName, ttlStr, err)
		}
		opts.DefaultTTL = ttl
	}

	if typesStr := configMap["TYPES"]; typesStr != "" {
		for _, s := range strings.Split(typesStr, ",") {
			if strings.TrimSpace(s) == "" {
				continue
			}
			t, err := provider.ParseRecordType(s)
			if err != nil {
				return nil, fmt.Errorf("configuration for %s: TYPES: %w", instanceName, err)
			}
			opts.SupportedTypes = append(opts.SupportedTypes, t)
		}
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}
	return opts, nil
}
