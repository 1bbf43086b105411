package hosttech

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

var supportedTypes = []provider.RecordType{
	provider.RecordTypeA,
	provider.RecordTypeAAAA,
	provider.RecordTypeCAA,
	provider.RecordTypeCNAME,
	provider.RecordTypeMX,
	provider.RecordTypeNS,
	provider.RecordTypePTR,
	provider.RecordTypeSRV,
	provider.RecordTypeTLSA,
	provider.RecordTypeTXT,
}

// toRecord flattens a typed Hosttech record into presentation form.
func toRecord(r apiRecord, zoneID int) (provider.Record, error) {
	rec := provider.Record{
		ID:     strconv.Itoa(r.ID),
		ZoneID: strconv.Itoa(zoneID),
		Type:   provider.RecordType(strings.ToUpper(r.Type)),
	}
	if r.TTL > 0 {
		rec.TTL = provider.IntPtr(r.TTL)
	}
	if r.Comment != "" {
		rec.Extra = map[string]string{"comment": r.Comment}
	}

	switch rec.Type {
	case provider.RecordTypeA:
		rec.Prefix, rec.Target = r.Name, r.IPv4
	case provider.RecordTypeAAAA:
		rec.Prefix, rec.Target = r.Name, r.IPv6
	case provider.RecordTypeCNAME:
		rec.Prefix, rec.Target = r.Name, r.CName
	case provider.RecordTypeTXT, provider.RecordTypeTLSA:
		rec.Prefix, rec.Target = r.Name, r.Text
	case provider.RecordTypeCAA:
		rec.Prefix = r.Name
		rec.Target = fmt.Sprintf("%s %s \"%s\"", r.Flag, r.Tag, r.Value)
	case provider.RecordTypeMX:
		rec.Prefix = r.OwnerName
		pref := intValue(r.Pref)
		rec.Target = fmt.Sprintf("%d %s", pref, r.Name)
		rec.Priority = provider.IntPtr(pref)
	case provider.RecordTypeNS:
		rec.Prefix, rec.Target = r.OwnerName, r.TargetName
	case provider.RecordTypePTR:
		rec.Prefix, rec.Target = r.Origin, r.Name
	case provider.RecordTypeSRV:
		rec.Prefix = r.Service
		prio := intValue(r.Priority)
		rec.Target = fmt.Sprintf("%d %d %d %s", prio, intValue(r.Weight), intValue(r.Port), r.Target)
		rec.Priority = provider.IntPtr(prio)
	default:
		return provider.Record{}, fmt.Errorf("%w: %s", provider.ErrUnsupportedType, r.Type)
	}

	rec.Prefix = strings.ToLower(rec.Prefix)
	return rec, nil
}

// fromRecord builds the typed payload for a record.
func fromRecord(r provider.Record, defaultTTL int) (apiRecord, error) {
	out := apiRecord{
		Type: string(r.Type),
		TTL:  r.TTLValue(defaultTTL),
	}
	if r.ID != "" {
		id, err := strconv.Atoi(r.ID)
		if err != nil {
			return apiRecord{}, fmt.Errorf("invalid record ID %q", r.ID)
		}
		out.ID = id
	}
	if c := r.Extra["comment"]; c != "" {
		out.Comment = c
	}

	switch r.Type {
	case provider.RecordTypeA:
		out.Name, out.IPv4 = r.Prefix, r.Target
	case provider.RecordTypeAAAA:
		out.Name, out.IPv6 = r.Prefix, r.Target
	case provider.RecordTypeCNAME:
		out.Name, out.CName = r.Prefix, r.Target
	case provider.RecordTypeTXT, provider.RecordTypeTLSA:
		out.Name, out.Text = r.Prefix, r.Target
	case provider.RecordTypeCAA:
		fields := strings.SplitN(r.Target, " ", 3)
		if len(fields) != 3 {
			return apiRecord{}, fmt.Errorf("invalid CAA value %q: expected 'flag tag value'", r.Target)
		}
		out.Name, out.Flag, out.Tag = r.Prefix, fields[0], fields[1]
		out.Value = strings.TrimSuffix(strings.TrimPrefix(fields[2], `"`), `"`)
	case provider.RecordTypeMX:
		fields := strings.Fields(r.Target)
		if len(fields) != 2 {
			return apiRecord{}, fmt.Errorf("invalid MX value %q: expected 'preference exchange'", r.Target)
		}
		pref, err := strconv.Atoi(fields[0])
		if err != nil {
			return apiRecord{}, fmt.Errorf("invalid MX preference %q", fields[0])
		}
		out.OwnerName, out.Name, out.Pref = r.Prefix, fields[1], &pref
	case provider.RecordTypeNS:
		out.OwnerName, out.TargetName = r.Prefix, r.Target
	case provider.RecordTypePTR:
		out.Origin, out.Name = r.Prefix, r.Target
	case provider.RecordTypeSRV:
		fields := strings.Fields(r.Target)
		if len(fields) != 4 {
			return apiRecord{}, fmt.Errorf("invalid SRV value %q: expected 'priority weight port target'", r.Target)
		}
		nums := make([]int, 3)
		for i := range nums {
			n, err := strconv.Atoi(fields[i])
			if err != nil {
				return apiRecord{}, fmt.Errorf("invalid SRV value %q: %w", r.Target, err)
			}
			nums[i] = n
		}
		out.Service, out.Target = r.Prefix, fields[3]
		out.Priority, out.Weight, out.Port = &nums[0], &nums[1], &nums[2]
	default:
		return apiRecord{}, fmt.Errorf("%w: %s", provider.ErrUnsupportedType, r.Type)
	}

	return out, nil
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
