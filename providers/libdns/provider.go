// Package libdns adapts any libdns record provider to the zonesync provider
// interface. The RFC 2136 backend from pkg/dnsupdate is registered as the
// "rfc2136" provider type.
package libdns

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/libdns/libdns"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// Backend is the part of the libdns API the adapter needs.
type Backend interface {
	libdns.RecordGetter
	libdns.RecordAppender
	libdns.RecordDeleter
}

// pinger is implemented by backends with a cheap connectivity check.
type pinger interface {
	Ping(ctx context.Context) error
}

// replacer is implemented by backends that can swap records atomically.
type replacer interface {
	ReplaceRecords(ctx context.Context, zone string, oldRecs, newRecs []libdns.Record) error
}

// Provider implements provider.Provider on top of a libdns Backend.
// libdns records carry no stable ID, so record IDs are synthesized as
// "name type data" and resolved back to records on update and delete.
type Provider struct {
	name       string
	typeName   string
	backend    Backend
	zone       string
	defaultTTL int
	types      []provider.RecordType
	logger     *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New wraps backend. typeName is reported by Type.
func New(name, typeName string, backend Backend, opts Options, logger *slog.Logger) (*Provider, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	zone := ""
	if opts.Zone != "" {
		zone, _ = dnsname.NormalizeName(opts.Zone)
	}

	return &Provider{
		name:       name,
		typeName:   typeName,
		backend:    backend,
		zone:       zone,
		defaultTTL: opts.DefaultTTL,
		types:      opts.SupportedTypes,
		logger:     logger,
	}, nil
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns the provider type.
func (p *Provider) Type() string {
	return p.typeName
}

// Capabilities returns what the adapter supports. Slice calls make bulk
// create and delete available; there is no bulk update in libdns.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		BulkCreate:     true,
		BulkDelete:     true,
		SupportedTypes: p.types,
		SupportsTTL:    true,
		DefaultTTL:     provider.IntPtr(p.defaultTTL),
		TXTHandling:    provider.TXTDecoded,
	}
}

// Ping uses the backend's own check when it has one and otherwise reads
// the configured zone.
func (p *Provider) Ping(ctx context.Context) error {
	if pg, ok := p.backend.(pinger); ok {
		return provider.WrapError(p.name, "ping", pg.Ping(ctx))
	}
	if p.zone == "" {
		return nil
	}
	_, err := p.backend.GetRecords(ctx, fqdn(p.zone))
	return provider.WrapError(p.name, "ping", err)
}

// ListZones returns the backend's zones, or the configured zone when the
// backend cannot list them.
func (p *Provider) ListZones(ctx context.Context) ([]provider.Zone, error) {
	lister, ok := p.backend.(libdns.ZoneLister)
	if !ok {
		if p.zone == "" {
			return nil, nil
		}
		return []provider.Zone{{ID: p.zone, Name: p.zone}}, nil
	}

	zones, err := lister.ListZones(ctx)
	if err != nil {
		return nil, provider.WrapError(p.name, "list zones", err)
	}

	out := make([]provider.Zone, 0, len(zones))
	for _, z := range zones {
		name, err := dnsname.NormalizeName(z.Name)
		if err != nil {
			p.logger.Warn("skipping zone with invalid name",
				slog.String("zone", z.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, provider.Zone{ID: name, Name: name})
	}
	return out, nil
}

// GetZoneWithRecords fetches all records of the referenced zone. SOA records
// are left out.
func (p *Provider) GetZoneWithRecords(ctx context.Context, ref provider.ZoneRef) (*provider.ZoneWithRecords, error) {
	zones, err := p.ListZones(ctx)
	if err != nil {
		return nil, err
	}
	zone, ok := provider.FindZone(zones, ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrZoneNotFound, ref)
	}

	recs, err := p.backend.GetRecords(ctx, fqdn(zone.Name))
	if err != nil {
		return nil, provider.WrapError(p.name, "get records", err)
	}

	records := make([]provider.Record, 0, len(recs))
	for _, rec := range recs {
		rr := rec.RR()
		if strings.EqualFold(rr.Type, "SOA") {
			continue
		}
		record, err := fromRR(rr, zone)
		if err != nil {
			p.logger.Warn("skipping record",
				slog.String("name", rr.Name),
				slog.String("type", rr.Type),
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, record)
	}

	return provider.NewZoneWithRecords(zone, records), nil
}

// CreateRecord appends a single record.
func (p *Provider) CreateRecord(ctx context.Context, zone provider.Zone, record provider.Record) (provider.Record, error) {
	rr := p.toRR(record)
	if _, err := p.backend.AppendRecords(ctx, fqdn(zone.Name), []libdns.Record{rr}); err != nil {
		return provider.Record{}, provider.WrapError(p.name, "append records", err)
	}
	return p.created(record, rr, zone), nil
}

// UpdateRecord replaces the record identified by record.ID. Backends that
// cannot replace atomically get a delete followed by an append.
func (p *Provider) UpdateRecord(ctx context.Context, zone provider.Zone, record provider.Record) (provider.Record, error) {
	old, err := parseID(record.ID)
	if err != nil {
		return provider.Record{}, err
	}
	rr := p.toRR(record)
	zoneName := fqdn(zone.Name)

	if r, ok := p.backend.(replacer); ok {
		if err := r.ReplaceRecords(ctx, zoneName, []libdns.Record{old}, []libdns.Record{rr}); err != nil {
			return provider.Record{}, provider.WrapError(p.name, "replace records", err)
		}
		return p.created(record, rr, zone), nil
	}

	if _, err := p.backend.DeleteRecords(ctx, zoneName, []libdns.Record{old}); err != nil {
		return provider.Record{}, provider.WrapError(p.name, "delete records", err)
	}
	if _, err := p.backend.AppendRecords(ctx, zoneName, []libdns.Record{rr}); err != nil {
		return provider.Record{}, provider.WrapError(p.name, "append records",
			fmt.Errorf("%s was deleted but its replacement failed: %w", record.ID, err))
	}
	return p.created(record, rr, zone), nil
}

// DeleteRecord removes the record identified by record.ID.
func (p *Provider) DeleteRecord(ctx context.Context, zone provider.Zone, record provider.Record) error {
	old, err := parseID(record.ID)
	if err != nil {
		return err
	}
	_, err = p.backend.DeleteRecords(ctx, fqdn(zone.Name), []libdns.Record{old})
	return provider.WrapError(p.name, "delete records", err)
}

// BulkCreate appends all records in one backend call.
func (p *Provider) BulkCreate(ctx context.Context, zone provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	rrs := make([]libdns.Record, 0, len(records))
	for _, record := range records {
		rrs = append(rrs, p.toRR(record))
	}
	if _, err := p.backend.AppendRecords(ctx, fqdn(zone.Name), rrs); err != nil {
		return nil, provider.WrapError(p.name, "append records", err)
	}

	results := make([]provider.BulkResult, 0, len(records))
	for i, record := range records {
		results = append(results, provider.BulkResult{Record: p.created(record, rrs[i].RR(), zone)})
	}
	return results, nil
}

// BulkUpdate returns ErrBulkUnsupported.
func (p *Provider) BulkUpdate(context.Context, provider.Zone, []provider.Record) ([]provider.BulkResult, error) {
	return nil, provider.ErrBulkUnsupported
}

// BulkDelete deletes all records in one backend call.
func (p *Provider) BulkDelete(ctx context.Context, zone provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	rrs := make([]libdns.Record, 0, len(records))
	for _, record := range records {
		old, err := parseID(record.ID)
		if err != nil {
			return nil, err
		}
		rrs = append(rrs, old)
	}
	if _, err := p.backend.DeleteRecords(ctx, fqdn(zone.Name), rrs); err != nil {
		return nil, provider.WrapError(p.name, "delete records", err)
	}

	results := make([]provider.BulkResult, 0, len(records))
	for _, record := range records {
		results = append(results, provider.BulkResult{Record: record.Clone()})
	}
	return results, nil
}

func (p *Provider) toRR(record provider.Record) libdns.RR {
	name := record.Prefix
	if name == "" {
		name = "@"
	}
	return libdns.RR{
		Name: name,
		TTL:  time.Duration(record.TTLValue(p.defaultTTL)) * time.Second,
		Type: record.Type.String(),
		Data: record.Target,
	}
}

// created returns record as stored by the backend.
func (p *Provider) created(record provider.Record, rr libdns.RR, zone provider.Zone) provider.Record {
	out := record.Clone()
	out.ID = recordID(rr)
	out.ZoneID = zone.ID
	out.TTL = provider.IntPtr(int(rr.TTL / time.Second))
	return out
}

func fromRR(rr libdns.RR, zone provider.Zone) (provider.Record, error) {
	recordType, err := provider.ParseRecordType(rr.Type)
	if err != nil {
		return provider.Record{}, err
	}

	prefix := ""
	if rr.Name != "@" && rr.Name != "" {
		if prefix, err = dnsname.NormalizeName(rr.Name); err != nil {
			return provider.Record{}, err
		}
	}

	record := provider.Record{
		ID:     recordID(rr),
		ZoneID: zone.ID,
		Type:   recordType,
		Prefix: prefix,
		Target: rr.Data,
		TTL:    provider.IntPtr(int(rr.TTL / time.Second)),
	}
	if recordType == provider.RecordTypeMX || recordType == provider.RecordTypeSRV {
		if first, _, ok := strings.Cut(rr.Data, " "); ok {
			if prio, err := strconv.Atoi(first); err == nil {
				record.Priority = provider.IntPtr(prio)
			}
		}
	}
	return record, nil
}

// recordID identifies rr within its zone. The TTL is not part of it.
func recordID(rr libdns.RR) string {
	name := rr.Name
	if name == "" {
		name = "@"
	}
	return name + " " + strings.ToUpper(rr.Type) + " " + rr.Data
}

func parseID(id string) (libdns.RR, error) {
	parts := strings.SplitN(id, " ", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return libdns.RR{}, fmt.Errorf("invalid libdns record ID %q", id)
	}
	return libdns.RR{Name: parts[0], Type: parts[1], Data: parts[2]}, nil
}

func fqdn(zone string) string {
	return strings.TrimSuffix(zone, ".") + "."
}
