package dnsupdate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/libdns/libdns"
	"github.com/miekg/dns"
)

// Provider implements the libdns interfaces for one zone on an RFC 2136
// server. Reads use AXFR and writes use signed UPDATE messages; every call
// is one message, so a batch either applies completely or not at all.
type Provider struct {
	client *Client
	logger *slog.Logger
}

var (
	_ libdns.RecordGetter   = (*Provider)(nil)
	_ libdns.RecordAppender = (*Provider)(nil)
	_ libdns.RecordSetter   = (*Provider)(nil)
	_ libdns.RecordDeleter  = (*Provider)(nil)
	_ libdns.ZoneLister     = (*Provider)(nil)
)

// New creates a Provider from config.
func New(config *Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := NewClient(config, WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Provider{client: client, logger: logger}, nil
}

// Zone returns the managed zone as an FQDN.
func (p *Provider) Zone() string {
	return p.client.Zone()
}

// Ping checks that the server is reachable and authoritative for the zone.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// ListZones returns the configured zone.
func (p *Provider) ListZones(context.Context) ([]libdns.Zone, error) {
	return []libdns.Zone{{Name: p.Zone()}}, nil
}

// GetRecords transfers the zone. SOA, apex NS and DNSSEC records are left
// out; the server maintains them.
func (p *Provider) GetRecords(ctx context.Context, zone string) ([]libdns.Record, error) {
	if err := p.checkZone(zone); err != nil {
		return nil, err
	}

	rrs, err := p.client.Transfer(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]libdns.Record, 0, len(rrs))
	for _, rr := range rrs {
		hdr := rr.Header()
		if hiddenTypes[hdr.Rrtype] {
			continue
		}
		if hdr.Rrtype == dns.TypeNS && strings.EqualFold(hdr.Name, p.Zone()) {
			continue
		}
		rec, err := fromRR(rr, p.Zone())
		if err != nil {
			p.logger.Warn("skipping record from zone transfer",
				slog.String("record", rr.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// AppendRecords adds recs to the zone.
func (p *Provider) AppendRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	if err := p.checkZone(zone); err != nil {
		return nil, err
	}
	inserts, err := p.toRRs(recs)
	if err != nil {
		return nil, err
	}
	if err := p.client.Apply(ctx, Update{Insert: inserts}); err != nil {
		return nil, err
	}
	return recs, nil
}

// SetRecords replaces every RRset named in recs with the given records.
func (p *Provider) SetRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	if err := p.checkZone(zone); err != nil {
		return nil, err
	}
	inserts, err := p.toRRs(recs)
	if err != nil {
		return nil, err
	}

	var rrsets []dns.RR
	seen := make(map[string]bool)
	for _, rec := range recs {
		rr := rec.RR()
		key := strings.ToLower(rr.Name) + " " + strings.ToUpper(rr.Type)
		if seen[key] {
			continue
		}
		seen[key] = true
		placeholder, err := rrsetPlaceholder(rr, p.Zone())
		if err != nil {
			return nil, err
		}
		rrsets = append(rrsets, placeholder)
	}

	if err := p.client.Apply(ctx, Update{RemoveRRsets: rrsets, Insert: inserts}); err != nil {
		return nil, err
	}
	return recs, nil
}

// DeleteRecords removes recs from the zone. A record without data removes
// the whole RRset of its name and type. Records that do not exist are
// ignored by the server, so the input is returned unchanged.
func (p *Provider) DeleteRecords(ctx context.Context, zone string, recs []libdns.Record) ([]libdns.Record, error) {
	if err := p.checkZone(zone); err != nil {
		return nil, err
	}

	var u Update
	for _, rec := range recs {
		rr := rec.RR()
		if rr.Data == "" {
			placeholder, err := rrsetPlaceholder(rr, p.Zone())
			if err != nil {
				return nil, err
			}
			u.RemoveRRsets = append(u.RemoveRRsets, placeholder)
			continue
		}
		wire, err := toRR(rr, p.Zone())
		if err != nil {
			return nil, err
		}
		u.Remove = append(u.Remove, wire)
	}

	if err := p.client.Apply(ctx, u); err != nil {
		return nil, err
	}
	return recs, nil
}

// ReplaceRecords removes oldRecs and inserts newRecs in one UPDATE message.
func (p *Provider) ReplaceRecords(ctx context.Context, zone string, oldRecs, newRecs []libdns.Record) error {
	if err := p.checkZone(zone); err != nil {
		return err
	}
	removes, err := p.toRRs(oldRecs)
	if err != nil {
		return err
	}
	inserts, err := p.toRRs(newRecs)
	if err != nil {
		return err
	}
	return p.client.Apply(ctx, Update{Remove: removes, Insert: inserts})
}

func (p *Provider) toRRs(recs []libdns.Record) ([]dns.RR, error) {
	out := make([]dns.RR, 0, len(recs))
	for _, rec := range recs {
		rr, err := toRR(rec.RR(), p.Zone())
		if err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, nil
}

func (p *Provider) checkZone(zone string) error {
	if !strings.EqualFold(dns.Fqdn(zone), p.Zone()) {
		return fmt.Errorf("%w: %s (configured %s)", ErrZoneMismatch, zone, p.Zone())
	}
	return nil
}
