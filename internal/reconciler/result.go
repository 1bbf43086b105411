package reconciler

import (
	"fmt"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/zonesync/internal/report"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	// StatusPending indicates the operation has not been executed yet.
	StatusPending OperationStatus = "pending"
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess OperationStatus = "success"
	// StatusFailed indicates the operation failed.
	StatusFailed OperationStatus = "failed"
	// StatusPlanned indicates a dry-run: the operation would have been executed.
	StatusPlanned OperationStatus = "planned"
)

// ExecMode tells whether an operation went through a single or a bulk call.
type ExecMode string

const (
	ModeSingle ExecMode = "single"
	ModeBulk   ExecMode = "bulk"
)

// Operation is a single planned or executed write.
type Operation struct {
	Kind   provider.OperationKind `json:"kind" yaml:"kind"`
	Mode   ExecMode               `json:"mode" yaml:"mode"`
	Status OperationStatus        `json:"status" yaml:"status"`

	// Record is the record written, or for deletes the record removed.
	Record provider.Record `json:"-" yaml:"-"`

	// Previous is the record replaced by an update.
	Previous *provider.Record `json:"-" yaml:"-"`

	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	TTL   *int   `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// String returns a human-readable representation of the operation.
func (o Operation) String() string {
	s := fmt.Sprintf("[%s] %s %s %s %s", o.Status, o.Kind, o.Name, o.Type, o.Value)
	if o.Mode == ModeBulk {
		s += " (bulk)"
	}
	if o.Error != "" {
		s += ": " + o.Error
	}
	return s
}

// Result holds the complete result of a reconciliation run.
type Result struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Provider string `json:"provider" yaml:"provider"`
	ZoneID   string `json:"zone_id" yaml:"zone_id"`
	ZoneName string `json:"zone" yaml:"zone"`

	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time" yaml:"end_time"`

	// DryRun indicates no changes were applied.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// Changed is true if at least one write was executed, or in a dry-run
	// would have been.
	Changed bool `json:"changed" yaml:"changed"`

	// RecordSets is the number of desired record sets, Unchanged the number
	// already in the desired state.
	RecordSets int `json:"record_sets" yaml:"record_sets"`
	Unchanged  int `json:"unchanged" yaml:"unchanged"`

	Operations []Operation `json:"operations" yaml:"operations"`
	Warnings   []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Diff       report.Diff `json:"diff" yaml:"diff"`
}

// NewResult creates a new Result with the start time set to now.
func NewResult(runID string, dryRun bool) *Result {
	return &Result{
		RunID:      runID,
		StartTime:  time.Now(),
		DryRun:     dryRun,
		Operations: make([]Operation, 0),
		Warnings:   make([]string, 0),
	}
}

// Complete marks the result as complete with the end time set to now.
func (r *Result) Complete() {
	r.EndTime = time.Now()
}

// Duration returns the total reconciliation duration.
func (r *Result) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// AddWarning records a warning.
func (r *Result) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Count returns the number of operations of kind with the given status.
func (r *Result) Count(kind provider.OperationKind, status OperationStatus) int {
	n := 0
	for _, o := range r.Operations {
		if o.Kind == kind && o.Status == status {
			n++
		}
	}
	return n
}

// Failed returns all failed operations.
func (r *Result) Failed() []Operation {
	var failed []Operation
	for _, o := range r.Operations {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// HasErrors returns true if any operation failed.
func (r *Result) HasErrors() bool {
	return len(r.Failed()) > 0
}

// Summary returns a human-readable summary of the reconciliation.
func (r *Result) Summary() string {
	var sb strings.Builder

	mode := "applied"
	done := StatusSuccess
	if r.DryRun {
		mode = "dry-run"
		done = StatusPlanned
	}

	fmt.Fprintf(&sb, "Reconciliation of %s complete (%s) in %s\n", r.ZoneName, mode, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "  Record sets: %d (%d unchanged)\n", r.RecordSets, r.Unchanged)
	fmt.Fprintf(&sb, "  Records created: %d\n", r.Count(provider.OperationCreate, done))
	fmt.Fprintf(&sb, "  Records updated: %d\n", r.Count(provider.OperationUpdate, done))
	fmt.Fprintf(&sb, "  Records deleted: %d\n", r.Count(provider.OperationDelete, done))

	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "  Warning: %s\n", w)
	}

	if failed := r.Failed(); len(failed) > 0 {
		fmt.Fprintf(&sb, "  Failed: %d\n", len(failed))
		for _, o := range failed {
			fmt.Fprintf(&sb, "    - %s\n", o.String())
		}
	}

	return sb.String()
}
