package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"gitlab.bluewillows.net/root/zonesync/internal/reconciler"
	"gitlab.bluewillows.net/root/zonesync/internal/report"
	"gitlab.bluewillows.net/root/zonesync/internal/runner"
)

func newCmdShow(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current record sets of the configured zones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := a.initProviders(ctx); err != nil {
				return err
			}

			snapshots := make([]*reconciler.ZoneSnapshot, 0, len(a.zones))
			for _, z := range a.zones {
				p, ok := a.registry.Get(z.Provider)
				if !ok {
					return fmt.Errorf("zone %s: %w: %s", z.Key(), runner.ErrProviderUnavailable, z.Provider)
				}
				snap, err := reconciler.New(p, reconciler.WithLogger(a.logger)).
					Snapshot(ctx, z.Zone, z.TXTTransformation, z.TXTCharacterEncoding)
				if err != nil {
					return fmt.Errorf("zone %s: %w", z.Key(), err)
				}
				a.logger.Debug("read zone",
					slog.String("zone", z.Key()),
					slog.Int("record_sets", len(snap.RecordSets)),
				)
				snapshots = append(snapshots, snap)
			}

			return report.Write(cmd.OutOrStdout(), a.format, snapshots)
		},
	}
}
