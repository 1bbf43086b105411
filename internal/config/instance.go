package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ProviderInstanceConfig holds configuration for a single provider instance.
// It is handed to the provider registry, which passes ProviderConfig to the
// factory of TypeName.
type ProviderInstanceConfig struct {
	// Name is the user-provided instance name (e.g., "hetzner-prod").
	Name string

	// TypeName is the provider type (e.g., "hetzner", "rfc2136").
	TypeName string

	// ProviderConfig holds provider-specific settings with upper-case keys
	// (e.g., "TOKEN", "URL", "ZONE").
	ProviderConfig map[string]string
}

// convertFileProvider converts a FileProviderConfig. Settings are taken
// from the file first, then from ZONESYNC_{INSTANCE}_{KEY} environment
// variables. A key with a _FILE suffix, in either place, names a file whose
// trimmed content becomes the value of the key without the suffix.
func convertFileProvider(fp FileProviderConfig) (*ProviderInstanceConfig, []string) {
	var errs []string

	cfg := &ProviderInstanceConfig{
		Name:           fp.Name,
		TypeName:       strings.ToLower(strings.TrimSpace(fp.Type)),
		ProviderConfig: make(map[string]string),
	}

	for k, v := range fp.Config {
		// Normalize keys to uppercase for consistency with env var loading
		cfg.ProviderConfig[strings.ToUpper(k)] = v
	}

	if fp.Name != "" {
		for k, v := range instanceEnv(fp.Name) {
			cfg.ProviderConfig[k] = v
		}
	}

	if err := resolveFileKeys(cfg.ProviderConfig); err != nil {
		errs = append(errs, fmt.Sprintf("provider %s: %v", fp.Name, err))
	}

	return cfg, errs
}

// instanceEnv returns the ZONESYNC_{INSTANCE}_* variables of an instance
// with the prefix removed.
func instanceEnv(instanceName string) map[string]string {
	prefix := envPrefix(instanceName)
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) || value == "" {
			continue
		}
		out[strings.TrimPrefix(key, prefix)] = value
	}
	return out
}

// resolveFileKeys replaces every KEY_FILE entry with KEY holding the file
// content. A file wins over a direct value.
func resolveFileKeys(m map[string]string) error {
	var fileKeys []string
	for k := range m {
		if strings.HasSuffix(k, "_FILE") && len(k) > len("_FILE") {
			fileKeys = append(fileKeys, k)
		}
	}
	sort.Strings(fileKeys)

	for _, k := range fileKeys {
		path := m[k]
		delete(m, k)
		if path == "" {
			continue
		}
		value, err := readSecretFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		m[strings.TrimSuffix(k, "_FILE")] = value
	}
	return nil
}
