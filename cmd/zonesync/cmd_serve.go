package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/zonesync/internal/config"
	"gitlab.bluewillows.net/root/zonesync/internal/health"
	"gitlab.bluewillows.net/root/zonesync/internal/watcher"
)

func newCmdServe(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Reconcile periodically and serve health and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, opts)
		},
	}
}

func serve(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	logger := a.logger

	logger.Info("zonesync starting",
		slog.String("version", Version),
		slog.String("build_date", BuildDate),
		slog.Bool("dry_run", a.cfg.DryRun()),
		slog.Int("zones", len(a.zones)),
	)

	if err := a.initProviders(ctx); err != nil {
		return err
	}
	if err := a.manager.Start(ctx); err != nil {
		return fmt.Errorf("starting provider manager: %w", err)
	}
	defer a.manager.Stop()

	healthServer := health.New(a.cfg.HealthPort(), health.WithLogger(logger))
	a.registerHealth(healthServer)
	if err := healthServer.Start(); err != nil {
		return fmt.Errorf("starting health server: %w", err)
	}

	logger.Info("zonesync initialized",
		slog.Int("providers", a.manager.ReadyCount()),
		slog.Int("pending_providers", a.manager.PendingCount()),
		slog.Int("health_port", a.cfg.HealthPort()),
		slog.Duration("interval", a.cfg.ReconcileInterval()),
	)

	stateWatcher := watcher.New(a.statePaths(), func(paths []string) {
		a.runChanged(ctx, paths)
	}, watcher.WithLogger(logger))
	if err := stateWatcher.Start(ctx); err != nil {
		return fmt.Errorf("starting state file watcher: %w", err)
	}
	defer stateWatcher.Stop()

	a.runner.Loop(ctx, a.zones, a.cfg.ReconcileInterval())

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("zonesync shutdown complete")
	return nil
}

// registerHealth wires readiness: not ready while no provider is available,
// degraded while some provider is pending or some zone failed its last run.
func (a *app) registerHealth(s *health.Server) {
	s.RegisterChecker("providers", func(context.Context) error {
		if a.manager.PendingCount() > 0 && a.manager.ReadyCount() == 0 {
			return errors.New("no provider available")
		}
		return nil
	})

	s.RegisterDegradedChecker("providers", func(context.Context) (bool, string) {
		var pending []string
		for _, st := range a.manager.AllProviderStatuses() {
			if !st.Available {
				pending = append(pending, st.Name)
			}
		}
		if len(pending) == 0 {
			return false, ""
		}
		return true, "providers pending: " + strings.Join(pending, ", ")
	})

	s.RegisterDegradedChecker("zones", func(context.Context) (bool, string) {
		failing := a.runner.Failing()
		if len(failing) == 0 {
			return false, ""
		}
		return true, "zones failing: " + strings.Join(failing, ", ")
	})

	s.RegisterDetail("providers", func() any { return a.manager.AllProviderStatuses() })
	s.RegisterDetail("zones", func() any { return a.runner.Statuses() })
}

// statePaths returns the state locations of the selected zones.
func (a *app) statePaths() []string {
	paths := make([]string, 0, len(a.zones))
	for _, z := range a.zones {
		paths = append(paths, z.State.Location)
	}
	return paths
}

// runChanged reconciles the zones whose state file is in paths.
func (a *app) runChanged(ctx context.Context, paths []string) {
	changed := make(map[string]bool, len(paths))
	for _, p := range paths {
		changed[p] = true
	}

	var zones []*config.ZoneConfig
	for _, z := range a.zones {
		if changed[z.State.Location] {
			zones = append(zones, z)
		}
	}
	if len(zones) == 0 || ctx.Err() != nil {
		return
	}

	if _, err := a.runner.Run(ctx, zones, false); err != nil {
		a.logger.Error("reconciliation after state change finished with errors",
			slog.Int("zones", len(zones)),
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.Info("reconciled zones after state change", slog.Int("zones", len(zones)))
}
