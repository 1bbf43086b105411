package reconciler

import (
	"strings"

	"gitlab.bluewillows.net/root/zonesync/internal/report"
	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// Plan is the ordered set of writes that brings a zone to the desired state.
// Records inside operations are in internal form.
type Plan struct {
	Zone provider.Zone

	Deletes []Operation
	Updates []Operation
	Creates []Operation

	Warnings  []string
	Unchanged int

	changes []setChange
}

// setChange captures one record set before and after the plan is applied.
type setChange struct {
	key    setKey
	before []provider.Record
	after  []provider.Record
}

// Empty reports whether the plan has no writes.
func (p *Plan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Updates) == 0 && len(p.Creates) == 0
}

// Len returns the total number of writes.
func (p *Plan) Len() int {
	return len(p.Deletes) + len(p.Updates) + len(p.Creates)
}

// Diff renders the changed record sets with values in user form.
func (p *Plan) Diff(conv *provider.Converter) report.Diff {
	diff := report.Diff{
		Before: make([]report.RecordSetOutput, 0, len(p.changes)),
		After:  make([]report.RecordSetOutput, 0, len(p.changes)),
	}
	for _, c := range p.changes {
		name := dnsname.AbsoluteName(c.key.prefix, p.Zone.Name)
		diff.Before = append(diff.Before, report.FormatRecordSet(userRecords(conv, c.before), name, c.key.prefix))
		diff.After = append(diff.After, report.FormatRecordSet(userRecords(conv, c.after), name, c.key.prefix))
	}
	return diff
}

func userRecords(conv *provider.Converter, records []provider.Record) []provider.Record {
	out := make([]provider.Record, 0, len(records))
	for _, r := range records {
		c := r.Clone()
		c.Target = conv.ToUser(r.Type, r.Target)
		out = append(out, c)
	}
	return out
}

type planner struct {
	zone   provider.Zone
	caps   provider.Capabilities
	conv   *provider.Converter
	policy Policy
}

// build compares the current records of the zone with the desired sets.
// It fails with a *PolicyViolationError before producing any operation if a
// keep_and_fail set differs.
func (pl *planner) build(current []provider.Record, desired []desiredSet) (*Plan, error) {
	plan := &Plan{Zone: pl.zone}

	byKey := make(map[setKey][]provider.Record)
	var order []setKey
	for _, r := range current {
		key := setKey{prefix: currentPrefix(r.Prefix), typ: r.Type}
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], r)
	}

	for _, d := range desired {
		existing, found := byKey[d.key]
		delete(byKey, d.key)

		if d.ignore {
			continue
		}

		template := provider.Record{
			ZoneID: pl.zone.ID,
			Type:   d.key.typ,
			Prefix: d.key.prefix,
			TTL:    d.ttl,
		}

		if !found {
			var created []provider.Record
			for _, v := range d.values {
				r := template.Clone()
				r.Target = v
				created = append(created, r)
				plan.Creates = append(plan.Creates, pl.operation(provider.OperationCreate, r, nil))
			}
			plan.changes = append(plan.changes, setChange{key: d.key, after: created})
			continue
		}

		diff := CompareRecordSet(existing, template, d.values, pl.caps)
		if !diff.HasChanges() {
			plan.Unchanged++
			continue
		}

		switch pl.policy.OnExisting {
		case OnExistingKeepAndFail:
			return nil, &PolicyViolationError{
				Prefix:  d.key.prefix,
				Type:    string(d.key.typ),
				Current: pl.userValues(existing),
				Desired: d.spec.Values,
			}
		case OnExistingKeepAndWarn:
			plan.Warnings = append(plan.Warnings,
				"record set "+d.key.String()+" differs from the desired state and was kept (on_existing=keep_and_warn)")
			continue
		case OnExistingKeep:
			continue
		}

		after := append([]provider.Record(nil), diff.Unchanged...)
		for _, r := range diff.ToDelete {
			plan.Deletes = append(plan.Deletes, pl.operation(provider.OperationDelete, r, nil))
		}
		for _, pair := range diff.ToUpdate {
			prev := pair.Existing
			plan.Updates = append(plan.Updates, pl.operation(provider.OperationUpdate, pair.Desired, &prev))
			after = append(after, pair.Desired)
		}
		for _, r := range diff.ToCreate {
			plan.Creates = append(plan.Creates, pl.operation(provider.OperationCreate, r, nil))
			after = append(after, r)
		}
		plan.changes = append(plan.changes, setChange{key: d.key, before: existing, after: after})
	}

	if pl.policy.Prune {
		for _, key := range order {
			existing, ok := byKey[key]
			if !ok {
				continue
			}
			for _, r := range existing {
				plan.Deletes = append(plan.Deletes, pl.operation(provider.OperationDelete, r, nil))
			}
			plan.changes = append(plan.changes, setChange{key: key, before: existing})
		}
	}

	return plan, nil
}

func (pl *planner) operation(kind provider.OperationKind, r provider.Record, prev *provider.Record) Operation {
	return Operation{
		Kind:     kind,
		Mode:     ModeSingle,
		Status:   StatusPending,
		Record:   r,
		Previous: prev,
		Name:     dnsname.AbsoluteName(r.Prefix, pl.zone.Name),
		Type:     string(r.Type),
		Value:    pl.conv.ToUser(r.Type, r.Target),
		TTL:      r.TTL,
	}
}

func (pl *planner) userValues(records []provider.Record) []string {
	values := make([]string, 0, len(records))
	for _, r := range records {
		values = append(values, pl.conv.ToUser(r.Type, r.Target))
	}
	return values
}

// currentPrefix normalizes a prefix reported by a provider. Names that do
// not pass validation are only lower-cased so they can still be pruned.
func currentPrefix(prefix string) string {
	if prefix == "@" {
		return ""
	}
	if n, err := dnsname.NormalizeName(prefix); err == nil {
		return n
	}
	return strings.ToLower(prefix)
}
