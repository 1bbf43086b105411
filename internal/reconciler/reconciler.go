// Package reconciler implements the core logic for comparing the desired
// record sets of a zone with the records at a DNS provider and applying the
// minimal set of writes that reconciles them.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"gitlab.bluewillows.net/root/zonesync/internal/metrics"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// Reconciler reconciles zones at one provider.
//
// A reconciliation:
//  1. Validates the desired record sets (names, types, values)
//  2. Fetches a fresh snapshot of the zone from the provider
//  3. Compares record sets keyed by normalized prefix and type
//  4. Resolves differences with the on_existing policy, optionally pruning
//  5. Applies deletes, updates and creates, batching them where possible
//
// The Reconciler keeps no state between calls and may be shared, but calls
// for the same zone must not overlap.
type Reconciler struct {
	provider provider.Provider
	logger   *slog.Logger
	newRunID func() string
}

// Option is a functional option for configuring the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithRunIDFunc replaces the generator for run identifiers.
func WithRunIDFunc(fn func() string) Option {
	return func(r *Reconciler) {
		r.newRunID = fn
	}
}

// New creates a new Reconciler for the given provider.
func New(p provider.Provider, opts ...Option) *Reconciler {
	r := &Reconciler{
		provider: p,
		logger:   slog.Default(),
		newRunID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Reconcile brings the zone in req to the desired state.
//
// Validation errors (*dnsname.InvalidDomainNameError, *SpecError) are
// returned before the provider is contacted; provider.ErrZoneNotFound and
// *PolicyViolationError before anything is written. If a write fails the
// remaining operations are abandoned and the result describing what was
// applied is returned. The error is a *PartialApplicationError when earlier
// writes succeeded, and the provider error itself otherwise.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (*Result, error) {
	result := NewResult(r.newRunID(), req.DryRun)
	result.Provider = r.provider.Name()
	result.RecordSets = len(req.RecordSets)

	logger := r.logger.With(
		slog.String("run_id", result.RunID),
		slog.String("provider", r.provider.Name()),
		slog.String("zone", req.Zone.String()),
	)

	res, err := r.reconcile(ctx, req, result, logger)
	result.Complete()
	r.recordMetrics(result, err)

	if err != nil {
		logger.Error("reconciliation failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", result.Duration()),
		)
		return res, err
	}

	logger.Info("reconciliation complete",
		slog.Bool("dry_run", result.DryRun),
		slog.Bool("changed", result.Changed),
		slog.Int("operations", len(result.Operations)),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("duration", result.Duration()),
	)
	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, req Request, result *Result, logger *slog.Logger) (*Result, error) {
	caps := r.provider.Capabilities()
	if err := precheck(&req, caps); err != nil {
		return nil, err
	}

	logger.Info("starting reconciliation",
		slog.Int("record_sets", len(req.RecordSets)),
		slog.Bool("prune", req.Policy.Prune),
		slog.String("on_existing", req.Policy.OnExisting.String()),
		slog.Bool("dry_run", req.DryRun),
	)

	snapshot, err := r.provider.GetZoneWithRecords(ctx, req.Zone)
	if err != nil {
		return nil, fmt.Errorf("fetching zone %s: %w", req.Zone, err)
	}
	zone := snapshot.Zone()
	result.ZoneID = zone.ID
	result.ZoneName = zone.Name

	conv := provider.NewConverter(caps, req.TXTTransformation, req.TXTCharacterEncoding)

	current := internalRecords(conv, snapshot.Records(), logger)

	logger.Debug("fetched zone",
		slog.String("zone_id", zone.ID),
		slog.Int("records", len(current)),
	)

	desired, err := resolve(req, zone, conv)
	if err != nil {
		return nil, err
	}

	pl := &planner{zone: zone, caps: caps, conv: conv, policy: req.Policy}
	plan, err := pl.build(current, desired)
	if err != nil {
		return nil, err
	}
	assignModes(plan, caps, req.Policy.BulkOperationThreshold)

	result.Unchanged = plan.Unchanged
	result.Diff = plan.Diff(conv)
	for _, w := range plan.Warnings {
		result.AddWarning("%s", w)
		logger.Warn(w)
	}

	if plan.Empty() {
		logger.Debug("zone already in desired state")
		return result, nil
	}

	if req.DryRun {
		for _, ops := range [][]Operation{plan.Deletes, plan.Updates, plan.Creates} {
			for i := range ops {
				ops[i].Status = StatusPlanned
				logger.Info("dry-run: would apply operation",
					slog.String("operation", string(ops[i].Kind)),
					slog.String("mode", string(ops[i].Mode)),
					slog.String("name", ops[i].Name),
					slog.String("type", ops[i].Type),
					slog.String("value", ops[i].Value),
				)
			}
		}
		result.Operations = collect(plan)
		result.Changed = true
		return result, nil
	}

	exec := &executor{provider: r.provider, conv: conv, zone: zone, logger: logger}
	// Once writes start they run to completion or first failure.
	runErr := exec.run(context.WithoutCancel(ctx), plan)

	result.Operations = collect(plan)
	result.Changed = result.Count(provider.OperationCreate, StatusSuccess)+
		result.Count(provider.OperationUpdate, StatusSuccess)+
		result.Count(provider.OperationDelete, StatusSuccess) > 0

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

func collect(plan *Plan) []Operation {
	ops := make([]Operation, 0, plan.Len())
	ops = append(ops, plan.Deletes...)
	ops = append(ops, plan.Updates...)
	ops = append(ops, plan.Creates...)
	return ops
}

// recordMetrics updates Prometheus metrics after a run.
func (r *Reconciler) recordMetrics(result *Result, err error) {
	status := "success"
	switch {
	case IsPolicyViolation(err):
		status = "policy_violation"
	case IsPartialApplication(err):
		status = "partial"
	case err != nil:
		status = "error"
	}

	zone := result.ZoneName
	if zone == "" {
		zone = "unknown"
	}

	metrics.RecordReconciliation(r.provider.Name(), zone, status, result.Duration())
	metrics.ReconcileWarnings.WithLabelValues(r.provider.Name(), zone).Add(float64(len(result.Warnings)))
	metrics.PlannedOperations.WithLabelValues(r.provider.Name(), zone).Set(float64(len(result.Operations)))
}
