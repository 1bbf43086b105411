package hosttech

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// TypeName is the provider type used in configuration.
const TypeName = "hosttech"

// Provider implements provider.Provider for Hosttech DNS.
type Provider struct {
	provider.NoBulk

	name   string
	ttl    int
	client *Client
	logger *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns the provider type.
func (p *Provider) Type() string {
	return TypeName
}

// Capabilities returns what the Hosttech API supports. TXT values are
// exchanged in decoded form and every record carries a TTL.
func (p *Provider) Capabilities() provider.Capabilities {
	ttl := p.ttl
	return provider.Capabilities{
		SupportedTypes: supportedTypes,
		SupportsTTL:    true,
		DefaultTTL:     &ttl,
		TXTHandling:    provider.TXTDecoded,
	}
}

// Ping checks connectivity to the Hosttech API.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.client.ListZones(ctx, "")
	return provider.WrapError(p.name, "ping", err)
}

// ListZones returns all zones of the account.
func (p *Provider) ListZones(ctx context.Context) ([]provider.Zone, error) {
	zones, err := p.client.ListZones(ctx, "")
	if err != nil {
		return nil, provider.WrapError(p.name, "list zones", err)
	}
	out := make([]provider.Zone, 0, len(zones))
	for _, z := range zones {
		out = append(out, toZone(z))
	}
	return out, nil
}

// GetZoneWithRecords fetches a zone by ID or name together with its records.
// Records of types this provider cannot represent are skipped.
func (p *Provider) GetZoneWithRecords(ctx context.Context, ref provider.ZoneRef) (*provider.ZoneWithRecords, error) {
	zone, zoneID, err := p.findZone(ctx, ref)
	if err != nil {
		return nil, err
	}

	apiRecords, err := p.client.ListRecords(ctx, zoneID)
	if err != nil {
		return nil, provider.WrapError(p.name, "list records", err)
	}

	records := make([]provider.Record, 0, len(apiRecords))
	for _, r := range apiRecords {
		rec, err := toRecord(r, zoneID)
		if err != nil {
			p.logger.Warn("skipping record",
				slog.String("provider", p.name),
				slog.String("zone", zone.Name),
				slog.Int("id", r.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, rec)
	}

	return provider.NewZoneWithRecords(zone, records), nil
}

func (p *Provider) findZone(ctx context.Context, ref provider.ZoneRef) (provider.Zone, int, error) {
	if ref.ID != "" {
		id, err := strconv.Atoi(ref.ID)
		if err != nil {
			return provider.Zone{}, 0, fmt.Errorf("%w: invalid zone id %q", provider.ErrZoneNotFound, ref.ID)
		}
		z, err := p.client.GetZone(ctx, id)
		if err != nil {
			if provider.IsNotFound(err) {
				return provider.Zone{}, 0, fmt.Errorf("%w: %s", provider.ErrZoneNotFound, ref)
			}
			return provider.Zone{}, 0, provider.WrapError(p.name, "get zone", err)
		}
		return toZone(*z), z.ID, nil
	}

	zones, err := p.client.ListZones(ctx, strings.TrimSuffix(ref.Name, "."))
	if err != nil {
		return provider.Zone{}, 0, provider.WrapError(p.name, "list zones", err)
	}
	converted := make([]provider.Zone, 0, len(zones))
	for _, z := range zones {
		converted = append(converted, toZone(z))
	}
	// The query parameter is a substring search, so match exactly here.
	zone, ok := provider.FindZone(converted, ref)
	if !ok {
		return provider.Zone{}, 0, fmt.Errorf("%w: %s", provider.ErrZoneNotFound, ref)
	}
	id, _ := strconv.Atoi(zone.ID)
	return zone, id, nil
}

// CreateRecord creates a single record.
func (p *Provider) CreateRecord(ctx context.Context, zone provider.Zone, record provider.Record) (provider.Record, error) {
	zoneID, err := zoneNumber(zone)
	if err != nil {
		return provider.Record{}, err
	}
	payload, err := fromRecord(record.WithoutID(), p.ttl)
	if err != nil {
		return provider.Record{}, err
	}
	created, err := p.client.CreateRecord(ctx, zoneID, payload)
	if err != nil {
		return provider.Record{}, provider.WrapError(p.name, "create record", err)
	}
	return toRecord(*created, zoneID)
}

// UpdateRecord replaces the record identified by record.ID.
func (p *Provider) UpdateRecord(ctx context.Context, zone provider.Zone, record provider.Record) (provider.Record, error) {
	if record.ID == "" {
		return provider.Record{}, fmt.Errorf("provider %s: update record: record has no ID", p.name)
	}
	zoneID, err := zoneNumber(zone)
	if err != nil {
		return provider.Record{}, err
	}
	payload, err := fromRecord(record, p.ttl)
	if err != nil {
		return provider.Record{}, err
	}
	updated, err := p.client.UpdateRecord(ctx, zoneID, payload)
	if err != nil {
		return provider.Record{}, provider.WrapError(p.name, "update record", err)
	}
	return toRecord(*updated, zoneID)
}

// DeleteRecord deletes the record identified by record.ID.
func (p *Provider) DeleteRecord(ctx context.Context, zone provider.Zone, record provider.Record) error {
	zoneID, err := zoneNumber(zone)
	if err != nil {
		return err
	}
	recordID, err := strconv.Atoi(record.ID)
	if err != nil {
		return fmt.Errorf("provider %s: delete record: invalid record ID %q", p.name, record.ID)
	}
	return provider.WrapError(p.name, "delete record", p.client.DeleteRecord(ctx, zoneID, recordID))
}

func zoneNumber(zone provider.Zone) (int, error) {
	id, err := strconv.Atoi(zone.ID)
	if err != nil {
		return 0, fmt.Errorf("invalid hosttech zone ID %q", zone.ID)
	}
	return id, nil
}

func toZone(z apiZone) provider.Zone {
	info := map[string]any{
		"ttl":    z.TTL,
		"dnssec": z.DNSSEC,
	}
	if z.Nameserver != "" {
		info["nameserver"] = z.Nameserver
	}
	if z.Email != "" {
		info["email"] = z.Email
	}
	return provider.Zone{
		ID:   strconv.Itoa(z.ID),
		Name: strings.ToLower(strings.TrimSuffix(z.Name, ".")),
		Info: info,
	}
}
