package reconciler

import (
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// RecordPair represents an existing record and its desired replacement.
type RecordPair struct {
	Existing provider.Record
	Desired  provider.Record
}

// RecordDiff is the difference between one current record set and its
// desired state. Records are in internal form.
type RecordDiff struct {
	// ToCreate contains desired values without a matching record.
	ToCreate []provider.Record

	// ToUpdate pairs a mismatched existing record with the record it becomes.
	ToUpdate []RecordPair

	// ToDelete contains existing records that are no longer wanted.
	ToDelete []provider.Record

	// Unchanged contains existing records matching a desired value and TTL.
	Unchanged []provider.Record
}

// HasChanges returns true if there are any records to create, update, or delete.
func (d *RecordDiff) HasChanges() bool {
	return len(d.ToCreate) > 0 || len(d.ToUpdate) > 0 || len(d.ToDelete) > 0
}

// TotalChanges returns the total number of changes (create + update + delete).
func (d *RecordDiff) TotalChanges() int {
	return len(d.ToCreate) + len(d.ToUpdate) + len(d.ToDelete)
}

// CompareRecordSet compares the records of one current set with the desired
// values and TTL. Values are compared as a multiset: order does not matter
// but repeated values must appear as often as desired.
//
// Mismatched records are reused before anything is deleted: a record whose
// value is still wanted but whose TTL differs is updated in place, and the
// remaining mismatched records are paired with missing values in order.
// Only leftovers on either side become deletes or creates.
func CompareRecordSet(existing []provider.Record, desired provider.Record, values []string, caps provider.Capabilities) RecordDiff {
	remaining := make(map[string]int, len(values))
	for _, v := range values {
		remaining[v]++
	}

	var diff RecordDiff
	var mismatched []provider.Record
	for _, r := range existing {
		if remaining[r.Target] > 0 && ttlMatches(caps, desired.TTL, r.TTL) {
			remaining[r.Target]--
			diff.Unchanged = append(diff.Unchanged, r)
			continue
		}
		mismatched = append(mismatched, r)
	}

	var missing []string
	for _, v := range values {
		if remaining[v] > 0 {
			remaining[v]--
			missing = append(missing, v)
		}
	}

	// TTL-only changes keep their value.
	var leftover []provider.Record
	for _, r := range mismatched {
		if i := indexOf(missing, r.Target); i >= 0 {
			diff.ToUpdate = append(diff.ToUpdate, RecordPair{Existing: r, Desired: desiredFrom(desired, r, r.Target)})
			missing = append(missing[:i], missing[i+1:]...)
			continue
		}
		leftover = append(leftover, r)
	}

	for len(leftover) > 0 && len(missing) > 0 {
		r := leftover[0]
		diff.ToUpdate = append(diff.ToUpdate, RecordPair{Existing: r, Desired: desiredFrom(desired, r, missing[0])})
		leftover = leftover[1:]
		missing = missing[1:]
	}

	diff.ToDelete = append(diff.ToDelete, leftover...)
	for _, v := range missing {
		c := desired.Clone()
		c.Target = v
		diff.ToCreate = append(diff.ToCreate, c)
	}
	return diff
}

// desiredFrom builds the replacement for existing: it keeps the provider ID
// and extension fields, and takes type, name and TTL from the template.
func desiredFrom(template, existing provider.Record, value string) provider.Record {
	r := template.Clone()
	r.ID = existing.ID
	r.ZoneID = existing.ZoneID
	r.Prefix = existing.Prefix
	r.Target = value
	if r.Extra == nil && existing.Extra != nil {
		r.Extra = existing.Clone().Extra
	}
	return r
}

// ttlMatches reports whether an existing TTL satisfies the desired one.
// TTLs are irrelevant for providers without TTL support, and an unset
// desired TTL matches anything unless the provider has a known default.
func ttlMatches(caps provider.Capabilities, desired, existing *int) bool {
	if !caps.SupportsTTL {
		return true
	}
	want := caps.ResolveTTL(desired)
	if want == nil {
		return true
	}
	have := caps.ResolveTTL(existing)
	return have != nil && *have == *want
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}
