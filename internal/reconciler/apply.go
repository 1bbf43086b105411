package reconciler

import (
	"context"
	"fmt"
	"log/slog"

	"gitlab.bluewillows.net/root/zonesync/internal/metrics"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// assignModes marks every operation of a kind as bulk when the provider has
// a bulk endpoint for it and the batch reaches the threshold.
func assignModes(plan *Plan, caps provider.Capabilities, threshold int) {
	for _, ops := range [][]Operation{plan.Deletes, plan.Updates, plan.Creates} {
		if len(ops) == 0 {
			continue
		}
		mode := ModeSingle
		if caps.SupportsBulk(ops[0].Kind) && len(ops) >= threshold {
			mode = ModeBulk
		}
		for i := range ops {
			ops[i].Mode = mode
		}
	}
}

// executor applies a plan against one provider. Calls are strictly
// sequential: deletes, then updates, then creates.
type executor struct {
	provider provider.Provider
	conv     *provider.Converter
	zone     provider.Zone
	logger   *slog.Logger
}

// run executes the plan and stops at the first failure. Operation statuses
// are updated in place.
func (e *executor) run(ctx context.Context, plan *Plan) error {
	for _, ops := range [][]Operation{plan.Deletes, plan.Updates, plan.Creates} {
		if len(ops) == 0 {
			continue
		}

		var err error
		if ops[0].Mode == ModeBulk {
			err = e.runBulk(ctx, ops)
		} else {
			err = e.runSingle(ctx, ops)
		}
		if err != nil {
			return e.partialError(plan, err)
		}
	}
	return nil
}

func (e *executor) runSingle(ctx context.Context, ops []Operation) error {
	for i := range ops {
		op := &ops[i]
		apiRecord := e.conv.ToAPI(op.Record)

		var written provider.Record
		var err error
		switch op.Kind {
		case provider.OperationCreate:
			written, err = e.provider.CreateRecord(ctx, e.zone, apiRecord.WithoutID())
		case provider.OperationUpdate:
			written, err = e.provider.UpdateRecord(ctx, e.zone, apiRecord)
		case provider.OperationDelete:
			err = e.provider.DeleteRecord(ctx, e.zone, apiRecord)
		}

		if err != nil {
			e.fail(op, err)
			return err
		}
		e.succeed(op, written)
	}
	return nil
}

func (e *executor) runBulk(ctx context.Context, ops []Operation) error {
	records := make([]provider.Record, 0, len(ops))
	for _, op := range ops {
		r := e.conv.ToAPI(op.Record)
		if op.Kind == provider.OperationCreate {
			r = r.WithoutID()
		}
		records = append(records, r)
	}

	kind := ops[0].Kind
	var results []provider.BulkResult
	var err error
	switch kind {
	case provider.OperationCreate:
		results, err = e.provider.BulkCreate(ctx, e.zone, records)
	case provider.OperationUpdate:
		results, err = e.provider.BulkUpdate(ctx, e.zone, records)
	case provider.OperationDelete:
		results, err = e.provider.BulkDelete(ctx, e.zone, records)
	}

	if err == nil && len(results) != len(ops) {
		err = fmt.Errorf("bulk %s returned %d results for %d records", kind, len(results), len(ops))
	}
	if err != nil {
		for i := range ops {
			e.fail(&ops[i], err)
		}
		return err
	}

	var firstErr error
	for i, res := range results {
		if res.Err != nil {
			e.fail(&ops[i], res.Err)
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		e.succeed(&ops[i], res.Record)
	}
	return firstErr
}

func (e *executor) succeed(op *Operation, written provider.Record) {
	op.Status = StatusSuccess
	if op.Kind != provider.OperationDelete && written.ID != "" {
		if r, err := e.conv.FromAPI(written); err == nil {
			op.Record = r
		}
	}
	metrics.RecordOperation(e.provider.Name(), string(op.Kind), string(op.Mode), string(op.Status))

	e.logger.Info("applied operation",
		slog.String("operation", string(op.Kind)),
		slog.String("mode", string(op.Mode)),
		slog.String("name", op.Name),
		slog.String("type", op.Type),
		slog.String("value", op.Value),
	)
}

func (e *executor) fail(op *Operation, err error) {
	op.Status = StatusFailed
	op.Error = err.Error()
	metrics.RecordOperation(e.provider.Name(), string(op.Kind), string(op.Mode), string(op.Status))

	e.logger.Error("operation failed",
		slog.String("operation", string(op.Kind)),
		slog.String("mode", string(op.Mode)),
		slog.String("name", op.Name),
		slog.String("type", op.Type),
		slog.String("value", op.Value),
		slog.String("error", err.Error()),
	)
}

// partialError wraps err when earlier operations were applied. A failure
// before any write is returned unchanged.
func (e *executor) partialError(plan *Plan, err error) error {
	pe := &PartialApplicationError{Err: err}
	for _, ops := range [][]Operation{plan.Deletes, plan.Updates, plan.Creates} {
		for _, op := range ops {
			switch op.Status {
			case StatusSuccess:
				pe.Completed = append(pe.Completed, op)
			case StatusFailed:
				pe.Failed = append(pe.Failed, op)
			default:
				pe.Pending = append(pe.Pending, op)
			}
		}
	}
	if len(pe.Completed) == 0 {
		return err
	}
	return pe
}
