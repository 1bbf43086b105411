package hetzner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// TypeName is the provider type used in configuration.
const TypeName = "hetzner"

// apexName is how the Hetzner API names the zone apex.
const apexName = "@"

var supportedTypes = []provider.RecordType{
	provider.RecordTypeA,
	provider.RecordTypeAAAA,
	provider.RecordTypeCAA,
	provider.RecordTypeCNAME,
	provider.RecordTypeDS,
	provider.RecordTypeMX,
	provider.RecordTypeNS,
	provider.RecordTypeSRV,
	provider.RecordTypeTLSA,
	provider.RecordTypeTXT,
	"HINFO",
	"RP",
}

// Provider implements provider.Provider for Hetzner DNS.
type Provider struct {
	name   string
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

// Capabilities returns what the Hetzner API supports. TXT values are sent
// in presentation format and records without TTL inherit the zone TTL.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		BulkCreate:     true,
		BulkUpdate:     true,
		SupportedTypes: supportedTypes,
		SupportsTTL:    true,
		TXTHandling:    provider.TXTEncoded,
	}
}

// Ping checks connectivity to the Hetzner API.
func (p *Provider) Ping(ctx context.Context) error {
	return provider.WrapError(p.name, "ping", p.client.Ping(ctx))
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
// The SOA record is managed by Hetzner and not returned.
func (p *Provider) GetZoneWithRecords(ctx context.Context, ref provider.ZoneRef) (*provider.ZoneWithRecords, error) {
	zone, err := p.findZone(ctx, ref)
	if err != nil {
		return nil, err
	}

	apiRecords, err := p.client.ListRecords(ctx, zone.ID)
	if err != nil {
		return nil, provider.WrapError(p.name, "list records", err)
	}

	records := make([]provider.Record, 0, len(apiRecords))
	for _, r := range apiRecords {
		if strings.EqualFold(r.Type, string(provider.RecordTypeSOA)) {
			continue
		}
		records = append(records, toRecord(r))
	}

	p.logger.Debug("fetched zone",
		slog.String("provider", p.name),
		slog.String("zone", zone.Name),
		slog.Int("records", len(records)),
	)
	return provider.NewZoneWithRecords(zone, records), nil
}

func (p *Provider) findZone(ctx context.Context, ref provider.ZoneRef) (provider.Zone, error) {
	if ref.ID != "" {
		z, err := p.client.GetZone(ctx, ref.ID)
		if err != nil {
			if provider.IsNotFound(err) {
				return provider.Zone{}, fmt.Errorf("%w: %s", provider.ErrZoneNotFound, ref)
			}
			return provider.Zone{}, provider.WrapError(p.name, "get zone", err)
		}
		return toZone(*z), nil
	}

	name := strings.TrimSuffix(ref.Name, ".")
	zones, err := p.client.ListZones(ctx, name)
	if err != nil {
		return provider.Zone{}, provider.WrapError(p.name, "list zones", err)
	}
	converted := make([]provider.Zone, 0, len(zones))
	for _, z := range zones {
		converted = append(converted, toZone(z))
	}
	zone, ok := provider.FindZone(converted, ref)
	if !ok {
		return provider.Zone{}, fmt.Errorf("%w: %s", provider.ErrZoneNotFound, ref)
	}
	return zone, nil
}

// CreateRecord creates a single record.
func (p *Provider) CreateRecord(ctx context.Context, zone provider.Zone, record provider.Record) (provider.Record, error) {
	created, err := p.client.CreateRecord(ctx, fromRecord(zone, record))
	if err != nil {
		return provider.Record{}, provider.WrapError(p.name, "create record", err)
	}
	return toRecord(*created), nil
}

// UpdateRecord replaces the record identified by record.ID.
func (p *Provider) UpdateRecord(ctx context.Context, zone provider.Zone, record provider.Record) (provider.Record, error) {
	if record.ID == "" {
		return provider.Record{}, fmt.Errorf("provider %s: update record: record has no ID", p.name)
	}
	updated, err := p.client.UpdateRecord(ctx, fromRecord(zone, record))
	if err != nil {
		return provider.Record{}, provider.WrapError(p.name, "update record", err)
	}
	return toRecord(*updated), nil
}

// DeleteRecord deletes the record identified by record.ID.
func (p *Provider) DeleteRecord(ctx context.Context, _ provider.Zone, record provider.Record) error {
	if record.ID == "" {
		return fmt.Errorf("provider %s: delete record: record has no ID", p.name)
	}
	return provider.WrapError(p.name, "delete record", p.client.DeleteRecord(ctx, record.ID))
}

// BulkCreate creates several records with one call. Created records are
// matched back to the input by name, type and value.
func (p *Provider) BulkCreate(ctx context.Context, zone provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	payload := make([]apiRecord, 0, len(records))
	for _, r := range records {
		payload = append(payload, fromRecord(zone, r))
	}

	resp, err := p.client.BulkCreateRecords(ctx, payload)
	if err != nil {
		return nil, provider.WrapError(p.name, "bulk create records", err)
	}

	created := make(map[string][]apiRecord)
	for _, r := range resp.Records {
		k := recordKey(r)
		created[k] = append(created[k], r)
	}
	invalid := make(map[string]int)
	for _, r := range resp.InvalidRecords {
		invalid[recordKey(r)]++
	}

	results := make([]provider.BulkResult, len(records))
	for i, in := range payload {
		k := recordKey(in)
		switch {
		case len(created[k]) > 0:
			results[i].Record = toRecord(created[k][0])
			created[k] = created[k][1:]
		case invalid[k] > 0:
			invalid[k]--
			results[i].Record = records[i]
			results[i].Err = provider.NewAPIError(p.name, "bulk create records", http.StatusUnprocessableEntity, "record rejected as invalid")
		default:
			results[i].Record = records[i]
			results[i].Err = fmt.Errorf("provider %s: bulk create records: record %s not reported in response", p.name, records[i])
		}
	}
	return results, nil
}

// BulkUpdate updates several records with one call. Results are matched by ID.
func (p *Provider) BulkUpdate(ctx context.Context, zone provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	payload := make([]apiRecord, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("provider %s: bulk update records: record %s has no ID", p.name, r)
		}
		payload = append(payload, fromRecord(zone, r))
	}

	resp, err := p.client.BulkUpdateRecords(ctx, payload)
	if err != nil {
		return nil, provider.WrapError(p.name, "bulk update records", err)
	}

	updated := make(map[string]apiRecord, len(resp.Records))
	for _, r := range resp.Records {
		updated[r.ID] = r
	}
	failed := make(map[string]bool, len(resp.FailedRecords))
	for _, r := range resp.FailedRecords {
		failed[r.ID] = true
	}

	results := make([]provider.BulkResult, len(records))
	for i, r := range records {
		if u, ok := updated[r.ID]; ok && !failed[r.ID] {
			results[i].Record = toRecord(u)
			continue
		}
		results[i].Record = r
		if failed[r.ID] {
			results[i].Err = provider.NewAPIError(p.name, "bulk update records", http.StatusUnprocessableEntity, "record update failed")
		} else {
			results[i].Err = fmt.Errorf("provider %s: bulk update records: record %s not reported in response", p.name, r)
		}
	}
	return results, nil
}

// BulkDelete is not offered by the Hetzner API.
func (p *Provider) BulkDelete(context.Context, provider.Zone, []provider.Record) ([]provider.BulkResult, error) {
	return nil, provider.ErrBulkUnsupported
}

func toZone(z apiZone) provider.Zone {
	info := map[string]any{
		"ttl": z.TTL,
	}
	if len(z.NS) > 0 {
		info["nameservers"] = z.NS
	}
	if z.Status != "" {
		info["status"] = z.Status
	}
	return provider.Zone{
		ID:   z.ID,
		Name: strings.ToLower(strings.TrimSuffix(z.Name, ".")),
		Info: info,
	}
}

func toRecord(r apiRecord) provider.Record {
	prefix := r.Name
	if prefix == apexName {
		prefix = ""
	}
	rec := provider.Record{
		ID:     r.ID,
		ZoneID: r.ZoneID,
		Type:   provider.RecordType(strings.ToUpper(r.Type)),
		Prefix: strings.ToLower(prefix),
		Target: r.Value,
	}
	if r.TTL != nil {
		rec.TTL = provider.IntPtr(*r.TTL)
	}
	if rec.Type == provider.RecordTypeMX || rec.Type == provider.RecordTypeSRV {
		if fields := strings.Fields(r.Value); len(fields) > 0 {
			if prio, err := strconv.Atoi(fields[0]); err == nil {
				rec.Priority = &prio
			}
		}
	}
	return rec
}

func fromRecord(zone provider.Zone, r provider.Record) apiRecord {
	name := r.Prefix
	if name == "" {
		name = apexName
	}
	out := apiRecord{
		ID:     r.ID,
		ZoneID: zone.ID,
		Type:   string(r.Type),
		Name:   name,
		Value:  r.Target,
	}
	if r.TTL != nil {
		ttl := *r.TTL
		out.TTL = &ttl
	}
	return out
}

func recordKey(r apiRecord) string {
	return strings.ToLower(r.Name) + "\x00" + strings.ToUpper(r.Type) + "\x00" + r.Value
}
