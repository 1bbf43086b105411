package reconciler

import (
	"errors"
	"fmt"

	"gitlab.bluewillows.net/root/zonesync/pkg/dnsname"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
	"gitlab.bluewillows.net/root/zonesync/pkg/txtcodec"
)

// RecordSetSpec is one desired record set. Exactly one of Record and Prefix
// must be set; Prefix "@" and "" both address the zone apex, so an apex set
// is written as Record: "example.com" or Prefix: "@".
type RecordSetSpec struct {
	// Record is the fully-qualified record name.
	Record string

	// Prefix is the record name relative to the zone.
	Prefix string

	Type string

	// TTL in seconds. Nil means the provider default.
	TTL *int

	// Values are written according to the request's TXT transformation.
	Values []string

	// Ignore excludes the record set from comparison and pruning.
	Ignore bool
}

func (s RecordSetSpec) displayName() string {
	if s.Record != "" {
		return s.Record
	}
	if s.Prefix == "" {
		return "@"
	}
	return s.Prefix
}

// Request is the input of one reconciliation.
type Request struct {
	Zone       provider.ZoneRef
	RecordSets []RecordSetSpec
	Policy     Policy

	// TXTTransformation defines how TXT values in RecordSets are written.
	TXTTransformation provider.TXTTransformation

	// TXTCharacterEncoding is used for quoted TXT values.
	TXTCharacterEncoding txtcodec.CharacterEncoding

	// DryRun computes the plan and diff without writing anything.
	DryRun bool
}

// setKey identifies a record set within a zone.
type setKey struct {
	prefix string
	typ    provider.RecordType
}

func (k setKey) String() string {
	prefix := k.prefix
	if prefix == "" {
		prefix = "@"
	}
	return prefix + " " + string(k.typ)
}

// desiredSet is a validated RecordSetSpec with values in internal form.
type desiredSet struct {
	index  int
	spec   RecordSetSpec
	key    setKey
	ttl    *int
	values []string
	ignore bool
}

// precheck validates everything that does not need the zone: the names,
// types and the presence of values. It runs before the provider is called.
func precheck(req *Request, caps provider.Capabilities) error {
	if err := req.Zone.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if err := req.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if req.TXTTransformation == "" {
		req.TXTTransformation = provider.TXTTransformationUnquoted
	}
	if req.TXTCharacterEncoding == "" {
		req.TXTCharacterEncoding = txtcodec.EncodingDecimal
	}

	for i, spec := range req.RecordSets {
		specErr := func(msg string, err error) error {
			return &SpecError{Index: i, Name: spec.displayName(), Type: spec.Type, Message: msg, Err: err}
		}

		switch {
		case spec.Record != "" && spec.Prefix != "":
			return specErr("record and prefix are mutually exclusive", nil)
		case spec.Record != "":
			if _, err := dnsname.NormalizeName(spec.Record); err != nil {
				return err
			}
		case spec.Prefix != "" && spec.Prefix != "@":
			if _, err := dnsname.NormalizeName(spec.Prefix); err != nil {
				return err
			}
		}

		t, err := provider.ParseRecordType(spec.Type)
		if err != nil {
			return specErr("", err)
		}
		if !caps.SupportsType(t) {
			return specErr("", provider.ErrUnsupportedType)
		}
		if spec.TTL != nil && *spec.TTL <= 0 {
			return specErr(fmt.Sprintf("ttl must be positive, got %d", *spec.TTL), nil)
		}
		if !spec.Ignore && len(spec.Values) == 0 {
			return specErr("at least one value is required unless the record set is ignored", nil)
		}
	}
	return nil
}

// resolve turns specs into desired sets for a concrete zone. Names outside
// the zone, undecodable values and duplicate keys are rejected.
func resolve(req Request, zone provider.Zone, conv *provider.Converter) ([]desiredSet, error) {
	sets := make([]desiredSet, 0, len(req.RecordSets))
	seen := make(map[setKey]int)

	for i, spec := range req.RecordSets {
		specErr := func(msg string, err error) error {
			return &SpecError{Index: i, Name: spec.displayName(), Type: spec.Type, Message: msg, Err: err}
		}

		var prefix string
		var err error
		switch {
		case spec.Record != "":
			prefix, err = dnsname.RelativePrefix(spec.Record, zone.Name)
			if err != nil {
				if errors.Is(err, dnsname.ErrNotInZone) {
					return nil, specErr("", err)
				}
				return nil, err
			}
		case spec.Prefix == "" || spec.Prefix == "@":
			prefix = ""
		default:
			if prefix, err = dnsname.NormalizeName(spec.Prefix); err != nil {
				return nil, err
			}
		}

		t, _ := provider.ParseRecordType(spec.Type)
		key := setKey{prefix: prefix, typ: t}
		if first, dup := seen[key]; dup {
			return nil, specErr(fmt.Sprintf("duplicate of record set #%d", first), nil)
		}
		seen[key] = i

		values := make([]string, 0, len(spec.Values))
		for _, v := range spec.Values {
			internal, err := conv.FromUser(t, v)
			if err != nil {
				return nil, specErr("", err)
			}
			values = append(values, internal)
		}

		sets = append(sets, desiredSet{
			index:  i,
			spec:   spec,
			key:    key,
			ttl:    spec.TTL,
			values: values,
			ignore: spec.Ignore,
		})
	}
	return sets, nil
}
