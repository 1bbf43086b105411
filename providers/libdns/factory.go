package libdns

import (
	"fmt"
	"log/slog"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsupdate"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// TypeRFC2136 is the provider type of the RFC 2136 backend.
const TypeRFC2136 = "rfc2136"

// RFC2136Factory returns a provider.Factory for zones updated via RFC 2136.
//
// Keys: SERVER, ZONE, TSIG_KEY_NAME, TSIG_SECRET, TSIG_ALGORITHM, TIMEOUT,
// USE_TCP, DEFAULT_TTL, TYPES
func RFC2136Factory(logger *slog.Logger) provider.Factory {
	return func(name string, configMap map[string]string) (provider.Provider, error) {
		if logger == nil {
			logger = slog.Default()
		}

		dnsCfg, err := dnsupdate.LoadConfigFromMap(configMap)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: %w", name, err)
		}

		opts, err := OptionsFromMap(name, configMap)
		if err != nil {
			return nil, err
		}
		opts.Zone = dnsCfg.GetZone()

		instanceLogger := logger.With(slog.String("provider", name))
		if !dnsCfg.HasTSIG() {
			instanceLogger.Warn("RFC 2136 updates are not signed; configure TSIG_KEY_NAME and TSIG_SECRET")
		}

		backend, err := dnsupdate.New(dnsCfg, instanceLogger)
		if err != nil {
			return nil, err
		}

		return New(name, TypeRFC2136, backend, *opts, instanceLogger)
	}
}
