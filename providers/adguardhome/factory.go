package adguardhome

import (
	"fmt"
	"log/slog"
	"net/http"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/httputil"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// Factory returns a provider.Factory for creating AdGuardHome provider instances.
func Factory(logger *slog.Logger) provider.Factory {
	return func(name string, configMap map[string]string) (provider.Provider, error) {
		providerCfg, err := LoadConfigFromMap(name, configMap)
		if err != nil {
			return nil, err
		}

		httpCfg, err := httputil.ConfigFromMap(configMap, logger)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: %w", name, err)
		}

		if httpCfg.TLSSkipVerify && logger != nil {
			logger.Warn("TLS certificate verification disabled for AdGuardHome provider",
				slog.String("provider", name),
				slog.String("url", providerCfg.URL),
			)
		}

		return NewWithHTTPClient(name, providerCfg, httputil.NewClient(httpCfg), logger)
	}
}

// NewWithHTTPClient creates a new AdGuardHome provider with a pre-configured HTTP client.
func NewWithHTTPClient(name string, config *Config, httpClient *http.Client, logger *slog.Logger) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	zone, err := dnsname.NormalizeName(config.Zone)
	if err != nil {
		return nil, err
	}

	return &Provider{
		name:   name,
		zone:   zone,
		client: NewClient(config.URL, config.Username, config.Password, WithHTTPClient(httpClient), WithLogger(logger)),
		logger: logger,
	}, nil
}
