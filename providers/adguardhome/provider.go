package adguardhome

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// TypeName is the provider type used in configuration.
const TypeName = "adguardhome"

// Provider implements provider.Provider over AdGuardHome rewrites. The
// configured zone is the only zone; its records are the rewrites whose
// domain lies inside it. Record IDs are "domain/answer".
type Provider struct {
	provider.NoBulk

	name   string
	zone   string
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

// Capabilities returns what rewrites can express: address and alias
// answers without TTL.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportedTypes: []provider.RecordType{
			provider.RecordTypeA,
			provider.RecordTypeAAAA,
			provider.RecordTypeCNAME,
		},
		SupportsTTL: false,
		TXTHandling: provider.TXTDecoded,
	}
}

// Ping checks that AdGuardHome answers and its DNS server is running.
func (p *Provider) Ping(ctx context.Context) error {
	status, err := p.client.Status(ctx)
	if err != nil {
		return provider.WrapError(p.name, "ping", err)
	}
	if !status.Running {
		return &provider.APIError{Provider: p.name, Operation: "ping", Message: "DNS server is not running"}
	}
	return nil
}

func (p *Provider) zoneInfo() provider.Zone {
	return provider.Zone{ID: p.zone, Name: p.zone}
}

// ListZones returns the configured zone.
func (p *Provider) ListZones(context.Context) ([]provider.Zone, error) {
	return []provider.Zone{p.zoneInfo()}, nil
}

// GetZoneWithRecords returns the rewrites inside the configured zone.
func (p *Provider) GetZoneWithRecords(ctx context.Context, ref provider.ZoneRef) (*provider.ZoneWithRecords, error) {
	zone, ok := provider.FindZone([]provider.Zone{p.zoneInfo()}, ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrZoneNotFound, ref)
	}

	rewrites, err := p.client.ListRewrites(ctx)
	if err != nil {
		return nil, provider.WrapError(p.name, "list rewrites", err)
	}

	var records []provider.Record
	for _, rw := range rewrites {
		prefix, err := dnsname.RelativePrefix(rw.Domain, p.zone)
		if err != nil {
			continue
		}
		recordType, ok := answerType(rw.Answer)
		if !ok {
			p.logger.Debug("skipping rewrite without explicit answer",
				slog.String("domain", rw.Domain),
				slog.String("answer", rw.Answer),
			)
			continue
		}
		records = append(records, provider.Record{
			ID:     rewriteID(rw),
			ZoneID: zone.ID,
			Type:   recordType,
			Prefix: prefix,
			Target: rw.Answer,
		})
	}

	return provider.NewZoneWithRecords(zone, records), nil
}

// CreateRecord adds a rewrite.
func (p *Provider) CreateRecord(ctx context.Context, _ provider.Zone, record provider.Record) (provider.Record, error) {
	rw, err := p.toRewrite(record)
	if err != nil {
		return provider.Record{}, err
	}
	if err := p.client.AddRewrite(ctx, rw); err != nil {
		return provider.Record{}, provider.WrapError(p.name, "add rewrite", err)
	}
	out := record.Clone()
	out.ID = rewriteID(rw)
	out.ZoneID = p.zone
	out.TTL = nil
	return out, nil
}

// UpdateRecord replaces the rewrite identified by record.ID.
func (p *Provider) UpdateRecord(ctx context.Context, _ provider.Zone, record provider.Record) (provider.Record, error) {
	old, err := parseRewriteID(record.ID)
	if err != nil {
		return provider.Record{}, err
	}
	rw, err := p.toRewrite(record)
	if err != nil {
		return provider.Record{}, err
	}
	if err := p.client.UpdateRewrite(ctx, old, rw); err != nil {
		return provider.Record{}, provider.WrapError(p.name, "update rewrite", err)
	}
	out := record.Clone()
	out.ID = rewriteID(rw)
	out.ZoneID = p.zone
	out.TTL = nil
	return out, nil
}

// DeleteRecord removes the rewrite identified by record.ID.
func (p *Provider) DeleteRecord(ctx context.Context, _ provider.Zone, record provider.Record) error {
	rw, err := parseRewriteID(record.ID)
	if err != nil {
		return err
	}
	return provider.WrapError(p.name, "delete rewrite", p.client.DeleteRewrite(ctx, rw))
}

func (p *Provider) toRewrite(record provider.Record) (rewrite, error) {
	got, ok := answerType(record.Target)
	if !ok || got != record.Type {
		return rewrite{}, fmt.Errorf("%w: %s answer %q cannot be expressed as a rewrite", provider.ErrUnsupportedType, record.Type, record.Target)
	}
	return rewrite{
		Domain: dnsname.AbsoluteName(record.Prefix, p.zone),
		Answer: record.Target,
	}, nil
}

// answerType derives the record type from a rewrite answer. The special
// answers "A" and "AAAA" keep upstream records and have no type of their own.
func answerType(answer string) (provider.RecordType, bool) {
	if answer == "" || answer == "A" || answer == "AAAA" {
		return "", false
	}
	if addr, err := netip.ParseAddr(answer); err == nil {
		if addr.Is4() {
			return provider.RecordTypeA, true
		}
		return provider.RecordTypeAAAA, true
	}
	return provider.RecordTypeCNAME, true
}

func rewriteID(rw rewrite) string {
	return rw.Domain + "/" + rw.Answer
}

func parseRewriteID(id string) (rewrite, error) {
	domain, answer, ok := strings.Cut(id, "/")
	if !ok || domain == "" || answer == "" {
		return rewrite{}, fmt.Errorf("invalid rewrite ID %q", id)
	}
	return rewrite{Domain: domain, Answer: answer}, nil
}
