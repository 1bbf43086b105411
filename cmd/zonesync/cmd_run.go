package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/zonesync/internal/reconciler"
	"gitlab.bluewillows.net/root/zonesync/internal/report"
)

// runReport is printed by plan and apply.
type runReport struct {
	DryRun bool         `json:"dry_run" yaml:"dry_run"`
	Zones  []zoneReport `json:"zones" yaml:"zones"`
}

type zoneReport struct {
	Zone    string             `json:"zone" yaml:"zone"`
	Summary string             `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error   string             `json:"error,omitempty" yaml:"error,omitempty"`
	Result  *reconciler.Result `json:"result,omitempty" yaml:"result,omitempty"`
}

func newCmdPlan(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the changes apply would make, without writing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runZones(cmd, opts, true)
		},
	}
}

func newCmdApply(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Reconcile every configured zone once",
		Long: "Reconcile every configured zone once. Zones configured with dry_run\n" +
			"are planned only.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runZones(cmd, opts, false)
		},
	}
}

// runZones reconciles the selected zones once and prints a runReport. The
// report is printed even when zones fail.
func runZones(cmd *cobra.Command, opts *rootOptions, dryRun bool) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := a.initProviders(ctx); err != nil {
		return err
	}

	outcomes, runErr := a.runner.Run(ctx, a.zones, dryRun)

	rep := runReport{DryRun: dryRun, Zones: make([]zoneReport, 0, len(outcomes))}
	failed := 0
	for _, o := range outcomes {
		zr := zoneReport{Zone: o.Zone, Result: o.Result}
		if o.Result != nil {
			zr.Summary = o.Result.Summary()
		}
		if o.Err != nil {
			zr.Error = o.Err.Error()
			failed++
		}
		rep.Zones = append(rep.Zones, zr)
	}

	if err := report.Write(cmd.OutOrStdout(), a.format, rep); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("%d of %d zones failed", failed, len(outcomes))
	}
	return nil
}
