// Package provider defines the interface that all DNS providers must implement.
package provider

import (
	"context"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
)

// Provider defines the interface for DNS providers.
// Each backend (Hetzner, Hosttech, AdGuardHome, libdns) must satisfy this interface.
// Implementations must be safe to call sequentially from one reconciliation;
// the engine never issues overlapping writes to the same zone.
type Provider interface {
	// Name returns the provider instance name (e.g., "hetzner-prod").
	Name() string

	// Type returns the provider type (e.g., "hetzner", "hosttech").
	Type() string

	// Capabilities returns the static capability descriptor of this instance.
	Capabilities() Capabilities

	// Ping checks connectivity to the provider.
	Ping(ctx context.Context) error

	// ListZones returns all zones visible to the configured credentials.
	ListZones(ctx context.Context) ([]Zone, error)

	// GetZoneWithRecords fetches a zone and all of its records.
	// Returns an error matching ErrZoneNotFound if the zone does not exist.
	GetZoneWithRecords(ctx context.Context, ref ZoneRef) (*ZoneWithRecords, error)

	// CreateRecord creates a record and returns it with its provider ID set.
	CreateRecord(ctx context.Context, zone Zone, record Record) (Record, error)

	// UpdateRecord replaces the record identified by record.ID.
	UpdateRecord(ctx context.Context, zone Zone, record Record) (Record, error)

	// DeleteRecord removes the record identified by record.ID.
	DeleteRecord(ctx context.Context, zone Zone, record Record) error

	// BulkCreate creates several records in one call. The results are in
	// input order. A non-nil error means the whole call failed.
	BulkCreate(ctx context.Context, zone Zone, records []Record) ([]BulkResult, error)

	// BulkUpdate updates several records in one call.
	BulkUpdate(ctx context.Context, zone Zone, records []Record) ([]BulkResult, error)

	// BulkDelete deletes several records in one call.
	BulkDelete(ctx context.Context, zone Zone, records []Record) ([]BulkResult, error)
}

// BulkResult is the outcome for one record of a bulk call.
type BulkResult struct {
	Record Record
	Err    error
}

// NoBulk can be embedded by providers without bulk endpoints.
type NoBulk struct{}

// BulkCreate returns ErrBulkUnsupported.
func (NoBulk) BulkCreate(context.Context, Zone, []Record) ([]BulkResult, error) {
	return nil, ErrBulkUnsupported
}

// BulkUpdate returns ErrBulkUnsupported.
func (NoBulk) BulkUpdate(context.Context, Zone, []Record) ([]BulkResult, error) {
	return nil, ErrBulkUnsupported
}

// BulkDelete returns ErrBulkUnsupported.
func (NoBulk) BulkDelete(context.Context, Zone, []Record) ([]BulkResult, error) {
	return nil, ErrBulkUnsupported
}

// FindZone resolves a zone reference against a list of zones by ID or by
// name. Name comparison ignores case and a trailing dot.
func FindZone(zones []Zone, ref ZoneRef) (Zone, bool) {
	want := normalizeZoneName(ref.Name)
	for _, z := range zones {
		if ref.ID != "" && z.ID == ref.ID {
			return z, true
		}
		if ref.ID == "" && normalizeZoneName(z.Name) == want {
			return z, true
		}
	}
	return Zone{}, false
}

func normalizeZoneName(name string) string {
	if n, err := dnsname.NormalizeName(name); err == nil {
		return n
	}
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
