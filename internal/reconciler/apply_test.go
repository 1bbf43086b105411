package reconciler

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gitlab.bluewillows.net/root/zonesync/internal/metrics"
	"gitlab.bluewillows.net/root/zonesync/pkg/provider"
)

// bulkCreateProvider replaces the mock's BulkCreate.
type bulkCreateProvider struct {
	*testMockProvider
	bulkCreate func(ctx context.Context, zone provider.Zone, records []provider.Record) ([]provider.BulkResult, error)
}

func (p *bulkCreateProvider) BulkCreate(ctx context.Context, zone provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
	return p.bulkCreate(ctx, zone, records)
}

func TestReconcile_BulkFailures(t *testing.T) {
	unavailable := provider.NewAPIError("mock", "bulk create", 503, "service unavailable")

	tests := []struct {
		name          string
		existing      []provider.Record
		prune         bool
		setup         func(m *testMockProvider) provider.Provider
		wantPartial   bool
		wantAPIStatus int
		wantErr       string
		wantStatus    map[string]OperationStatus
		wantChanged   bool
	}{
		{
			name:     "bulk call fails after deletes",
			existing: []provider.Record{rec("old1", typeA, "9.9.9.1", 300), rec("old2", typeA, "9.9.9.2", 300)},
			prune:    true,
			setup: func(m *testMockProvider) provider.Provider {
				return &bulkCreateProvider{testMockProvider: m, bulkCreate: func(context.Context, provider.Zone, []provider.Record) ([]provider.BulkResult, error) {
					return nil, unavailable
				}}
			},
			wantPartial:   true,
			wantAPIStatus: 503,
			wantStatus: map[string]OperationStatus{
				"9.9.9.1": StatusSuccess, "9.9.9.2": StatusSuccess,
				"1.1.1.1": StatusFailed, "2.2.2.2": StatusFailed, "3.3.3.3": StatusFailed,
			},
			wantChanged: true,
		},
		{
			name: "bulk call fails before any write",
			setup: func(m *testMockProvider) provider.Provider {
				return &bulkCreateProvider{testMockProvider: m, bulkCreate: func(context.Context, provider.Zone, []provider.Record) ([]provider.BulkResult, error) {
					return nil, unavailable
				}}
			},
			wantAPIStatus: 503,
			wantStatus:    map[string]OperationStatus{"1.1.1.1": StatusFailed, "2.2.2.2": StatusFailed, "3.3.3.3": StatusFailed},
		},
		{
			name: "one item fails",
			setup: func(m *testMockProvider) provider.Provider {
				m.failFn = func(call string, r provider.Record) error {
					if call == "" && r.Target == "2.2.2.2" {
						return provider.NewAPIError("mock", "bulk create", 422, "invalid value")
					}
					return nil
				}
				return m
			},
			wantPartial:   true,
			wantAPIStatus: 422,
			wantStatus:    map[string]OperationStatus{"1.1.1.1": StatusSuccess, "2.2.2.2": StatusFailed, "3.3.3.3": StatusSuccess},
			wantChanged:   true,
		},
		{
			name: "short result slice",
			setup: func(m *testMockProvider) provider.Provider {
				return &bulkCreateProvider{testMockProvider: m, bulkCreate: func(ctx context.Context, zone provider.Zone, records []provider.Record) ([]provider.BulkResult, error) {
					results, err := m.BulkCreate(ctx, zone, records)
					return results[:len(results)-1], err
				}}
			},
			wantErr:    "bulk create returned 2 results for 3 records",
			wantStatus: map[string]OperationStatus{"1.1.1.1": StatusFailed, "2.2.2.2": StatusFailed, "3.3.3.3": StatusFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newTestMockProvider(tt.existing...)
			mock.caps.BulkCreate = true
			r := newTestReconciler(tt.setup(mock))

			result, err := r.Reconcile(context.Background(), Request{
				Zone:       zoneByName(),
				RecordSets: []RecordSetSpec{{Prefix: "www", Type: "A", Values: []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}}},
				Policy:     Policy{Prune: tt.prune, BulkOperationThreshold: 2},
			})
			if err == nil {
				t.Fatal("expected an error")
			}

			var pe *PartialApplicationError
			if got := errors.As(err, &pe); got != tt.wantPartial {
				t.Errorf("partial application = %v, want %v (err %v)", got, tt.wantPartial, err)
			}
			if tt.wantAPIStatus != 0 {
				var apiErr *provider.APIError
				if !errors.As(err, &apiErr) || apiErr.Status != tt.wantAPIStatus {
					t.Errorf("expected API error with status %d, got %v", tt.wantAPIStatus, err)
				}
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}

			if result == nil {
				t.Fatal("result should describe the attempted operations")
			}
			if result.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", result.Changed, tt.wantChanged)
			}
			got := make(map[string]OperationStatus, len(result.Operations))
			for _, op := range result.Operations {
				got[op.Value] = op.Status
				if op.Kind == provider.OperationCreate && op.Mode != ModeBulk {
					t.Errorf("create %s should run in bulk", op)
				}
				if op.Status == StatusFailed && op.Error == "" {
					t.Errorf("failed operation %s has no error", op)
				}
			}
			if !reflect.DeepEqual(got, tt.wantStatus) {
				t.Errorf("statuses = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestReconcile_BulkUpdateAndDelete(t *testing.T) {
	mock := newTestMockProvider(
		rec("www", typeA, "1.1.1.1", 300),
		rec("www", typeA, "2.2.2.2", 300),
		rec("old1", typeA, "9.9.9.1", 300),
		rec("old2", typeA, "9.9.9.2", 300),
	)
	mock.caps.BulkCreate = true
	mock.caps.BulkUpdate = true
	mock.caps.BulkDelete = true
	r := newTestReconciler(mock)

	result, err := r.Reconcile(context.Background(), Request{
		Zone:       zoneByName(),
		RecordSets: []RecordSetSpec{{Prefix: "www", Type: "A", TTL: provider.IntPtr(300), Values: []string{"3.3.3.3", "4.4.4.4"}}},
		Policy:     Policy{Prune: true, OnExisting: OnExistingReplace, BulkOperationThreshold: 2},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if got, want := mock.writeCalls(), []string{"bulk_delete", "bulk_update"}; !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if len(result.Operations) != 4 {
		t.Fatalf("operations = %v", result.Operations)
	}
	for _, op := range result.Operations {
		if op.Mode != ModeBulk || op.Status != StatusSuccess {
			t.Errorf("operation %s should be a successful bulk operation", op)
		}
	}

	state := mock.state()
	slices.Sort(state)
	if want := []string{"www A 3.3.3.3", "www A 4.4.4.4"}; !reflect.DeepEqual(state, want) {
		t.Errorf("state = %v, want %v", state, want)
	}
}

func TestReconcile_FirstWriteFailureReturnsProviderError(t *testing.T) {
	mock := newTestMockProvider()
	mock.name = "first-write-fails"
	mock.failFn = func(call string, _ provider.Record) error {
		if call == "create" {
			return provider.NewAPIError(mock.name, "create record", 403, "forbidden")
		}
		return nil
	}
	r := newTestReconciler(mock)

	result, err := r.Reconcile(context.Background(), Request{
		Zone:       zoneByName(),
		RecordSets: []RecordSetSpec{{Prefix: "www", Type: "A", Values: []string{"1.1.1.1"}}},
	})

	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Fatalf("expected the 403 API error, got %v", err)
	}
	if IsPartialApplication(err) {
		t.Error("nothing was applied, the error should not report a partial application")
	}
	if provider.IsRetryable(err) {
		t.Error("a 403 should not be retryable")
	}
	if result == nil || result.Changed {
		t.Fatalf("result = %+v, want an unchanged result", result)
	}
	if len(result.Operations) != 1 || result.Operations[0].Status != StatusFailed {
		t.Errorf("operations = %v", result.Operations)
	}

	if got := testutil.ToFloat64(metrics.ReconciliationsTotal.WithLabelValues(mock.name, "example.com", "error")); got != 1 {
		t.Errorf("error reconciliations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ReconciliationsTotal.WithLabelValues(mock.name, "example.com", "partial")); got != 0 {
		t.Errorf("partial reconciliations = %v, want 0", got)
	}
}
