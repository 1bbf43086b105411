package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.bluewillows.net/root/zonesync/internal/report"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// ZoneSnapshot is the current content of a zone in the form users write.
type ZoneSnapshot struct {
	Provider   string                   `json:"provider" yaml:"provider"`
	ZoneID     string                   `json:"zone_id" yaml:"zone_id"`
	ZoneName   string                   `json:"zone_name" yaml:"zone_name"`
	RecordSets []report.RecordSetOutput `json:"record_sets" yaml:"record_sets"`
}

// Snapshot reads the zone without changing it. TXT values are shown
// according to transformation and enc.
func (r *Reconciler) Snapshot(ctx context.Context, ref provider.ZoneRef, transformation provider.TXTTransformation, enc txtcodec.CharacterEncoding) (*ZoneSnapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := r.provider.GetZoneWithRecords(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching zone %s: %w", ref, err)
	}
	zone := snapshot.Zone()

	logger := r.logger.With(
		slog.String("provider", r.provider.Name()),
		slog.String("zone", zone.Name),
	)
	conv := provider.NewConverter(r.provider.Capabilities(), transformation, enc)
	records := userRecords(conv, internalRecords(conv, snapshot.Records(), logger))

	return &ZoneSnapshot{
		Provider:   r.provider.Name(),
		ZoneID:     zone.ID,
		ZoneName:   zone.Name,
		RecordSets: report.FormatRecordSets(zone.Name, provider.GroupRecords(records)),
	}, nil
}

// internalRecords converts provider records to internal form. Values that
// cannot be decoded are kept as stored.
func internalRecords(conv *provider.Converter, apiRecords []provider.Record, logger *slog.Logger) []provider.Record {
	current := make([]provider.Record, 0, len(apiRecords))
	for _, rec := range apiRecords {
		internal, err := conv.FromAPI(rec)
		if err != nil {
			logger.Warn("keeping undecodable record value as-is",
				slog.String("prefix", rec.Prefix),
				slog.String("type", string(rec.Type)),
				slog.String("error", err.Error()),
			)
			internal = rec
		}
		current = append(current, internal)
	}
	return current
}
