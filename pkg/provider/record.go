package provider

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/miekg/dns"
)

// RecordType represents the type of DNS record.
type RecordType string

const (
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCAA   RecordType = "CAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeDS    RecordType = "DS"
	RecordTypeHTTPS RecordType = "HTTPS"
	RecordTypeMX    RecordType = "MX"
	RecordTypeNS    RecordType = "NS"
	RecordTypePTR   RecordType = "PTR"
	RecordTypeSOA   RecordType = "SOA"
	RecordTypeSPF   RecordType = "SPF"
	RecordTypeSRV   RecordType = "SRV"
	RecordTypeSSHFP RecordType = "SSHFP"
	RecordTypeSVCB  RecordType = "SVCB"
	RecordTypeTLSA  RecordType = "TLSA"
	RecordTypeTXT   RecordType = "TXT"
)

// ParseRecordType parses s into a RecordType. Any type known to the DNS
// type table is accepted; the result is upper case.
func ParseRecordType(s string) (RecordType, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "" {
		return "", fmt.Errorf("record type must not be empty")
	}
	if _, ok := dns.StringToType[upper]; !ok {
		return "", fmt.Errorf("unknown record type %q", s)
	}
	return RecordType(upper), nil
}

// String returns the string representation of the record type.
func (t RecordType) String() string {
	return string(t)
}

// IsTXT reports whether values of this type are TXT character-strings.
func (t RecordType) IsTXT() bool {
	return t == RecordTypeTXT || t == RecordTypeSPF
}

// Record is a single DNS record at a provider.
type Record struct {
	// ID is assigned by the provider. Empty for records not yet created.
	ID string

	// ZoneID is the provider ID of the owning zone.
	ZoneID string

	Type RecordType

	// Prefix is the record name relative to the zone. The apex is "".
	Prefix string

	// Target is the record data in presentation format, e.g. "10 mail.example.com."
	// for MX records.
	Target string

	// TTL in seconds. Nil means the provider default.
	TTL *int

	// Priority mirrors the MX/SRV priority for providers that report it
	// as a separate field. Target always contains the full data.
	Priority *int

	// Extra holds provider-specific fields.
	Extra map[string]string
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	c := r
	c.TTL = cloneInt(r.TTL)
	c.Priority = cloneInt(r.Priority)
	c.Extra = maps.Clone(r.Extra)
	return c
}

// WithoutID returns a copy of the record with the provider ID cleared.
func (r Record) WithoutID() Record {
	c := r.Clone()
	c.ID = ""
	return c
}

// TTLValue returns the TTL or fallback when the TTL is unset.
func (r Record) TTLValue(fallback int) int {
	if r.TTL == nil {
		return fallback
	}
	return *r.TTL
}

func (r Record) String() string {
	ttl := "default"
	if r.TTL != nil {
		ttl = fmt.Sprintf("%d", *r.TTL)
	}
	prefix := r.Prefix
	if prefix == "" {
		prefix = "@"
	}
	return fmt.Sprintf("%s %s %s (ttl %s)", prefix, r.Type, r.Target, ttl)
}

// RecordSet groups all records sharing prefix and type.
type RecordSet struct {
	ID     string
	Type   RecordType
	Prefix string

	// TTL is the set-level TTL. Nil when unspecified or mixed.
	TTL *int

	Records []Record
	Extra   map[string]string
}

// Values returns the targets of all records in stored order.
func (s RecordSet) Values() []string {
	values := make([]string, 0, len(s.Records))
	for _, r := range s.Records {
		values = append(values, r.Target)
	}
	return values
}

// DistinctTTLs returns the sorted distinct TTLs of all records that have one.
func (s RecordSet) DistinctTTLs() []int {
	seen := make(map[int]struct{})
	for _, r := range s.Records {
		if r.TTL != nil {
			seen[*r.TTL] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// GroupRecords groups records into record sets by (prefix, type), keeping
// the order in which each set was first seen. The set TTL is populated when
// all records agree on it.
func GroupRecords(records []Record) []RecordSet {
	index := make(map[string]int)
	var sets []RecordSet
	for _, r := range records {
		key := r.Prefix + "\x00" + string(r.Type)
		i, ok := index[key]
		if !ok {
			i = len(sets)
			index[key] = i
			sets = append(sets, RecordSet{Type: r.Type, Prefix: r.Prefix})
		}
		sets[i].Records = append(sets[i].Records, r)
	}
	for i := range sets {
		if ttls := sets[i].DistinctTTLs(); len(ttls) == 1 {
			ttl := ttls[0]
			sets[i].TTL = &ttl
		}
	}
	return sets
}

// Zone describes a DNS zone at a provider.
type Zone struct {
	ID string

	// Name is the zone name without trailing dot.
	Name string

	// Info holds provider-specific metadata such as nameservers or serial.
	Info map[string]any
}

// ZoneRef identifies a zone either by provider ID or by name.
type ZoneRef struct {
	ID   string
	Name string
}

// Validate ensures exactly one of ID and Name is set.
func (z ZoneRef) Validate() error {
	switch {
	case z.ID == "" && z.Name == "":
		return fmt.Errorf("zone reference needs an id or a name")
	case z.ID != "" && z.Name != "":
		return fmt.Errorf("zone reference must not set both id %q and name %q", z.ID, z.Name)
	}
	return nil
}

func (z ZoneRef) String() string {
	if z.ID != "" {
		return "id:" + z.ID
	}
	return z.Name
}

// ZoneWithRecords is a snapshot of a zone and its records.
type ZoneWithRecords struct {
	zone    Zone
	records []Record
}

// NewZoneWithRecords creates a snapshot. The inputs are copied.
func NewZoneWithRecords(zone Zone, records []Record) *ZoneWithRecords {
	return &ZoneWithRecords{
		zone:    Zone{ID: zone.ID, Name: zone.Name, Info: maps.Clone(zone.Info)},
		records: cloneRecords(records),
	}
}

// Zone returns the zone metadata.
func (z *ZoneWithRecords) Zone() Zone {
	return Zone{ID: z.zone.ID, Name: z.zone.Name, Info: maps.Clone(z.zone.Info)}
}

// Records returns a copy of the records.
func (z *ZoneWithRecords) Records() []Record {
	return cloneRecords(z.records)
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
