// Package report formats record sets and reconciliation outcomes for display.
package report

import (
	"cmp"
	"slices"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// RecordSetOutput is the caller-facing view of one record set.
type RecordSetOutput struct {
	Record string   `json:"record" yaml:"record"`
	Prefix string   `json:"prefix" yaml:"prefix"`
	Type   *string  `json:"type" yaml:"type"`
	TTL    *int     `json:"ttl" yaml:"ttl"`
	TTLs   []int    `json:"ttls,omitempty" yaml:"ttls,omitempty"`
	Value  []string `json:"value" yaml:"value"`
}

// FormatRecordSet builds the output view of records, which are expected to
// share prefix and type. TTL is the minimum TTL over the records; when the
// records disagree, TTLs lists the distinct values. Values keep their stored
// order. If the records are heterogeneous the lexicographically smallest
// type is reported.
func FormatRecordSet(records []provider.Record, recordName, prefix string) RecordSetOutput {
	out := RecordSetOutput{
		Record: recordName,
		Prefix: prefix,
		Value:  make([]string, 0, len(records)),
	}
	if len(records) == 0 {
		return out
	}

	minType := records[0].Type
	ttls := make(map[int]struct{})
	for _, r := range records {
		out.Value = append(out.Value, r.Target)
		if r.Type < minType {
			minType = r.Type
		}
		if r.TTL != nil {
			ttls[*r.TTL] = struct{}{}
		}
	}

	t := string(minType)
	out.Type = &t

	if len(ttls) > 0 {
		distinct := make([]int, 0, len(ttls))
		for ttl := range ttls {
			distinct = append(distinct, ttl)
		}
		slices.Sort(distinct)
		minTTL := distinct[0]
		out.TTL = &minTTL
		if len(distinct) > 1 {
			out.TTLs = distinct
		}
	}
	return out
}

// FormatRecordSets formats several record sets of one zone, sorted by
// prefix and then type.
func FormatRecordSets(zoneName string, sets []provider.RecordSet) []RecordSetOutput {
	sorted := slices.Clone(sets)
	slices.SortStableFunc(sorted, func(a, b provider.RecordSet) int {
		return cmp.Or(cmp.Compare(a.Prefix, b.Prefix), cmp.Compare(a.Type, b.Type))
	})

	out := make([]RecordSetOutput, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, FormatRecordSet(s.Records, dnsname.AbsoluteName(s.Prefix, zoneName), s.Prefix))
	}
	return out
}

// Diff holds the state of the changed record sets before and after a run.
type Diff struct {
	Before []RecordSetOutput `json:"before" yaml:"before"`
	After  []RecordSetOutput `json:"after" yaml:"after"`
}

// Empty reports whether the diff carries no record sets.
func (d Diff) Empty() bool {
	return len(d.Before) == 0 && len(d.After) == 0
}
