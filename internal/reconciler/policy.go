package reconciler

import (
	"fmt"
	"strings"
)

// OnExisting defines what happens when a desired record set already exists
// at the provider with different values or TTL.
type OnExisting string

const (
	// OnExistingReplace rewrites the record set to match the desired state.
	// Mismatched records are updated in place where possible, surplus records
	// are deleted and missing values are created.
	OnExistingReplace OnExisting = "replace"

	// OnExistingKeepAndFail aborts the whole reconciliation before any write.
	OnExistingKeepAndFail OnExisting = "keep_and_fail"

	// OnExistingKeepAndWarn keeps the existing record set and reports a warning.
	OnExistingKeepAndWarn OnExisting = "keep_and_warn"

	// OnExistingKeep keeps the existing record set silently.
	OnExistingKeep OnExisting = "keep"
)

// ParseOnExisting parses a string into an OnExisting policy.
// Returns OnExistingReplace if the input is empty (default).
func ParseOnExisting(s string) (OnExisting, error) {
	if s == "" {
		return OnExistingReplace, nil
	}

	o := OnExisting(strings.ToLower(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("invalid on_existing %q: must be one of replace, keep_and_fail, keep_and_warn, keep", s)
	}
	return o, nil
}

// IsValid returns true if o is a known policy.
func (o OnExisting) IsValid() bool {
	switch o {
	case OnExistingReplace, OnExistingKeepAndFail, OnExistingKeepAndWarn, OnExistingKeep:
		return true
	default:
		return false
	}
}

// String returns the string representation of the policy.
func (o OnExisting) String() string {
	return string(o)
}

// DefaultBulkOperationThreshold is the smallest batch sent through a bulk endpoint.
const DefaultBulkOperationThreshold = 2

// Policy controls how differences between desired and current state are resolved.
type Policy struct {
	// Prune deletes every record set at the provider that is neither desired nor ignored.
	Prune bool

	// OnExisting resolves conflicts for record sets that exist with different content.
	OnExisting OnExisting

	// BulkOperationThreshold is the minimum number of operations of one kind
	// that are sent as a single bulk call, if the provider supports it.
	BulkOperationThreshold int
}

// DefaultPolicy returns a Policy with sensible defaults.
func DefaultPolicy() Policy {
	return Policy{
		Prune:                  false,
		OnExisting:             OnExistingReplace,
		BulkOperationThreshold: DefaultBulkOperationThreshold,
	}
}

// Validate checks the policy and fills in defaults for zero values.
func (p *Policy) Validate() error {
	if p.OnExisting == "" {
		p.OnExisting = OnExistingReplace
	}
	if !p.OnExisting.IsValid() {
		return fmt.Errorf("invalid on_existing %q", p.OnExisting)
	}
	if p.BulkOperationThreshold == 0 {
		p.BulkOperationThreshold = DefaultBulkOperationThreshold
	}
	if p.BulkOperationThreshold < 1 {
		return fmt.Errorf("bulk_operation_threshold must be at least 1, got %d", p.BulkOperationThreshold)
	}
	return nil
}
