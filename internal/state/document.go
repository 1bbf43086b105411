// Package state loads desired-state documents. A document names the record
// sets a zone should contain and is written as YAML, TOML or an RFC 1035
// zone file, stored locally or on an SFTP server.
package state

import (
	"fmt"
	"strings"

	"gitlab.bluewillows.net/root/zonesync/internal/reconciler"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// Document is the desired state of one zone.
type Document struct {
	// Zone optionally names the zone the document was written for.
	Zone string `yaml:"zone,omitempty" toml:"zone,omitempty"`

	// TXTTransformation overrides the zone's configured transformation when
	// set. Zone files always yield unquoted values.
	TXTTransformation string `yaml:"txt_transformation,omitempty" toml:"txt_transformation,omitempty"`

	RecordSets []RecordSet `yaml:"record_sets" toml:"record_sets"`
}

// RecordSet is one record set as written in a document.
type RecordSet struct {
	Record string   `yaml:"record,omitempty" toml:"record,omitempty"`
	Prefix string   `yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	Type   string   `yaml:"type" toml:"type"`
	TTL    *int     `yaml:"ttl,omitempty" toml:"ttl,omitempty"`
	Values []string `yaml:"values,omitempty" toml:"values,omitempty"`
	Ignore bool     `yaml:"ignore,omitempty" toml:"ignore,omitempty"`
}

// Specs converts the record sets into reconciler input. Validation of
// names, types and values is left to the reconciler.
func (d *Document) Specs() []reconciler.RecordSetSpec {
	specs := make([]reconciler.RecordSetSpec, 0, len(d.RecordSets))
	for _, rs := range d.RecordSets {
		var ttl *int
		if rs.TTL != nil {
			ttl = provider.IntPtr(*rs.TTL)
		}
		specs = append(specs, reconciler.RecordSetSpec{
			Record: strings.TrimSpace(rs.Record),
			Prefix: strings.TrimSpace(rs.Prefix),
			Type:   strings.TrimSpace(rs.Type),
			TTL:    ttl,
			Values: append([]string(nil), rs.Values...),
			Ignore: rs.Ignore,
		})
	}
	return specs
}

// Transformation returns the document's TXT transformation, or fallback
// when the document does not set one.
func (d *Document) Transformation(fallback provider.TXTTransformation) (provider.TXTTransformation, error) {
	if d.TXTTransformation == "" {
		return fallback, nil
	}
	t, err := provider.ParseTXTTransformation(d.TXTTransformation)
	if err != nil {
		return "", fmt.Errorf("document: %w", err)
	}
	return t, nil
}
