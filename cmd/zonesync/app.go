package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/zonesync/internal/config"
	"gitlab.bluewillows.net/root/zonesync/internal/metrics"
	"gitlab.bluewillows.net/root/zonesync/internal/report"
	"gitlab.bluewillows.net/root/zonesync/internal/runner"
	"gitlab.bluewillows.net/root/zonesync/internal/state"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
	"gitlab.bluewillows.net/root/zonesync/providers/adguardhome"
	"gitlab.bluewillows.net/root/zonesync/providers/hetzner"
	"gitlab.bluewillows.net/root/zonesync/providers/hosttech"
	"gitlab.bluewillows.net/root/zonesync/providers/libdns"
)

// app is the wiring shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	format   report.Format
	registry *provider.Registry
	manager  *provider.Manager
	runner   *runner.Runner
	zones    []*config.ZoneConfig
}

// newApp loads the configuration, applies flag overrides and wires
// providers and the runner. Logs go to the command's stderr so that
// results on stdout stay machine-readable.
func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if opts.logLevel != "" {
		if err := cfg.SetLogLevel(opts.logLevel); err != nil {
			return nil, err
		}
	}
	if opts.logFormat != "" {
		if err := cfg.SetLogFormat(opts.logFormat); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("concurrency") {
		if err := cfg.SetConcurrency(opts.concurrency); err != nil {
			return nil, err
		}
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.LogLevel(), cfg.LogFormat())
	slog.SetDefault(logger)

	metrics.SetBuildInfo(Version, runtime.Version())

	registry := provider.NewRegistry()
	registerProviderFactories(registry, logger)
	if err := cfg.ValidateProviderTypes(registry.Types()); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	zones, err := selectZones(cfg.Zones, opts.zones)
	if err != nil {
		return nil, err
	}

	manager := provider.NewManager(registry,
		provider.WithManagerLogger(logger),
		provider.WithStatusFunc(metrics.SetProviderAvailable),
	)

	run := runner.New(registry, state.NewLoader(state.WithLogger(logger)),
		runner.WithLogger(logger),
		runner.WithConcurrency(cfg.Concurrency()),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		format:   format,
		registry: registry,
		manager:  manager,
		runner:   run,
		zones:    zones,
	}, nil
}

func registerProviderFactories(registry *provider.Registry, logger *slog.Logger) {
	registry.RegisterFactory(hetzner.TypeName, hetzner.Factory(logger))
	registry.RegisterFactory(hosttech.TypeName, hosttech.Factory(logger))
	registry.RegisterFactory(adguardhome.TypeName, adguardhome.Factory(logger))
	registry.RegisterFactory(libdns.TypeRFC2136, libdns.RFC2136Factory(logger))
}

// initProviders initializes the provider instances the selected zones use.
// Instances that cannot be reached stay pending in the manager; their zones
// fail with runner.ErrProviderUnavailable.
func (a *app) initProviders(ctx context.Context) error {
	used := make(map[string]bool, len(a.zones))
	for _, z := range a.zones {
		used[z.Provider] = true
	}

	for _, p := range a.cfg.Providers {
		if !used[p.Name] {
			a.logger.Debug("skipping unused provider", slog.String("provider", p.Name))
			continue
		}
		err := a.manager.InitializeProvider(ctx, provider.InstanceConfig{
			Name:   p.Name,
			Type:   p.TypeName,
			Config: p.ProviderConfig,
		})
		if err != nil {
			return fmt.Errorf("initializing provider %s: %w", p.Name, err)
		}
	}
	return nil
}

// selectZones keeps the zones matching filter. A filter entry matches a
// zone key ("provider/zone") or a zone name. Every entry must match.
func selectZones(zones []*config.ZoneConfig, filter []string) ([]*config.ZoneConfig, error) {
	if len(filter) == 0 {
		return zones, nil
	}

	var out []*config.ZoneConfig
	matched := make(map[string]bool, len(filter))
	for _, z := range zones {
		for _, f := range filter {
			f = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(f)), ".")
			if f == z.Key() || f == z.Zone.String() {
				matched[f] = true
				if !slices.Contains(out, z) {
					out = append(out, z)
				}
			}
		}
	}

	var missing []string
	for _, f := range filter {
		f = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(f)), ".")
		if !matched[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no configured zone matches %s", strings.Join(missing, ", "))
	}
	return out, nil
}
