// Package dnsname splits, joins, validates and normalizes DNS names.
//
// Labels are returned top-down: the rightmost label of a name comes first.
// This is the order in which zone membership is checked, so callers that
// compare a record name against a zone can walk both slices from index 0.
package dnsname

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// MaxLabelLength is the maximum length of a single label in bytes.
const MaxLabelLength = 63

// ErrInvalidDomainName indicates a malformed domain name or label.
var ErrInvalidDomainName = errors.New("invalid domain name")

// ErrNotInZone indicates a record name that is not inside the given zone.
var ErrNotInZone = errors.New("name is not part of zone")

// InvalidDomainNameError describes why a domain name was rejected.
type InvalidDomainNameError struct {
	Name   string
	Label  string
	Reason string
}

func (e *InvalidDomainNameError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("invalid domain name %q: label %q %s", e.Name, e.Label, e.Reason)
	}
	return fmt.Sprintf("invalid domain name %q: %s", e.Name, e.Reason)
}

func (e *InvalidDomainNameError) Unwrap() error {
	return ErrInvalidDomainName
}

// IsInvalidDomainName returns true if the error is caused by a malformed name.
func IsInvalidDomainName(err error) bool {
	return errors.Is(err, ErrInvalidDomainName)
}

// IDNA2003-compatible lookup profile: transitional mapping folds ß to ss and
// the like, and no STD3 rules so underscores in service labels survive.
var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(true),
	idna.StrictDomainName(false),
)

// SplitIntoLabels splits domain into its labels, rightmost label first.
// The returned tail is "." for absolute names and "" otherwise.
func SplitIntoLabels(domain string) ([]string, string, error) {
	if domain == "" || domain == "." {
		return []string{}, domain, nil
	}

	tail := ""
	name := domain
	if strings.HasSuffix(name, ".") {
		tail = "."
		name = name[:len(name)-1]
	}

	parts := strings.Split(name, ".")
	labels := make([]string, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		label := parts[i]
		if err := checkLabel(domain, label); err != nil {
			return nil, "", err
		}
		labels = append(labels, label)
	}
	return labels, tail, nil
}

func checkLabel(domain, label string) error {
	switch {
	case label == "":
		return &InvalidDomainNameError{Name: domain, Reason: "contains an empty label"}
	case strings.HasPrefix(label, "-"):
		return &InvalidDomainNameError{Name: domain, Label: label, Reason: "must not start with a dash"}
	case strings.HasSuffix(label, "-"):
		return &InvalidDomainNameError{Name: domain, Label: label, Reason: "must not end with a dash"}
	case len(label) > MaxLabelLength:
		return &InvalidDomainNameError{Name: domain, Label: label, Reason: fmt.Sprintf("exceeds %d bytes", MaxLabelLength)}
	}
	return nil
}

// JoinLabels is the inverse of SplitIntoLabels.
func JoinLabels(labels []string, tail string) string {
	reversed := make([]string, len(labels))
	for i, label := range labels {
		reversed[len(labels)-1-i] = label
	}
	return strings.Join(reversed, ".") + tail
}

// IsASCIILabel reports whether label only consists of [a-zA-Z0-9.-].
func IsASCIILabel(label string) bool {
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
		default:
			return false
		}
	}
	return true
}

// NormalizeLabel lower-cases label, converting Unicode labels to their
// ASCII-compatible xn-- form first. The wildcard label and the empty label
// are returned unchanged.
func NormalizeLabel(label string) (string, error) {
	if label == "" || label == "*" {
		return label, nil
	}
	if !isPlainASCII(label) {
		encoded, err := idnaProfile.ToASCII(label)
		if err != nil {
			return "", &InvalidDomainNameError{Name: label, Label: label, Reason: "cannot be IDNA encoded: " + err.Error()}
		}
		label = encoded
	}
	return strings.ToLower(label), nil
}

// isPlainASCII is looser than IsASCIILabel: service labels such as
// "_acme-challenge" need no IDNA step either.
func isPlainASCII(label string) bool {
	for i := 0; i < len(label); i++ {
		if label[i] >= 0x80 {
			return false
		}
	}
	return true
}

// NormalizeName validates name and normalizes every label. The trailing dot
// of an absolute name is dropped.
func NormalizeName(name string) (string, error) {
	labels, _, err := splitNormalized(name)
	if err != nil {
		return "", err
	}
	return JoinLabels(labels, ""), nil
}

// RelativePrefix returns the prefix of record relative to zone. The apex
// yields "". Both names are normalized before comparison.
func RelativePrefix(record, zone string) (string, error) {
	recordLabels, _, err := splitNormalized(record)
	if err != nil {
		return "", err
	}
	zoneLabels, _, err := splitNormalized(zone)
	if err != nil {
		return "", err
	}
	if len(recordLabels) < len(zoneLabels) {
		return "", fmt.Errorf("%q in %q: %w", record, zone, ErrNotInZone)
	}
	for i, label := range zoneLabels {
		if recordLabels[i] != label {
			return "", fmt.Errorf("%q in %q: %w", record, zone, ErrNotInZone)
		}
	}
	return JoinLabels(recordLabels[len(zoneLabels):], ""), nil
}

// AbsoluteName returns the fully-qualified name, without trailing dot, for
// prefix inside zone.
func AbsoluteName(prefix, zone string) string {
	zone = strings.TrimSuffix(zone, ".")
	if prefix == "" || prefix == "@" {
		return zone
	}
	return prefix + "." + zone
}

func splitNormalized(name string) ([]string, string, error) {
	labels, tail, err := SplitIntoLabels(name)
	if err != nil {
		return nil, "", err
	}
	for i, label := range labels {
		if labels[i], err = NormalizeLabel(label); err != nil {
			return nil, "", err
		}
	}
	return labels, tail, nil
}
