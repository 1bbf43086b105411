package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetBuildInfo(t *testing.T) {
	BuildInfo.Reset()

	SetBuildInfo("v1.0.0", "go1.24")

	if count := testutil.CollectAndCount(BuildInfo); count != 1 {
		t.Errorf("expected 1 metric, got %d", count)
	}
	if value := testutil.ToFloat64(BuildInfo.WithLabelValues("v1.0.0", "go1.24")); value != 1 {
		t.Errorf("expected value 1, got %f", value)
	}
}

func TestRecordReconciliation(t *testing.T) {
	ReconciliationsTotal.Reset()
	LastReconcileTimestamp.Reset()

	RecordReconciliation("hetzner", "example.com", "success", 500*time.Millisecond)
	RecordReconciliation("hetzner", "example.com", "success", time.Second)
	RecordReconciliation("hetzner", "example.com", "error", time.Second)

	if got := testutil.ToFloat64(ReconciliationsTotal.WithLabelValues("hetzner", "example.com", "success")); got != 2 {
		t.Errorf("success count = %f, want 2", got)
	}
	if got := testutil.ToFloat64(ReconciliationsTotal.WithLabelValues("hetzner", "example.com", "error")); got != 1 {
		t.Errorf("error count = %f, want 1", got)
	}
	if got := testutil.ToFloat64(LastReconcileTimestamp.WithLabelValues("hetzner", "example.com")); got == 0 {
		t.Error("last success timestamp not set")
	}
}

func TestRecordOperation(t *testing.T) {
	OperationsTotal.Reset()

	RecordOperation("hosttech", "create", "single", "success")
	RecordOperation("hosttech", "create", "single", "success")
	RecordOperation("hosttech", "delete", "bulk", "failed")

	if got := testutil.ToFloat64(OperationsTotal.WithLabelValues("hosttech", "create", "single", "success")); got != 2 {
		t.Errorf("create count = %f, want 2", got)
	}
	if got := testutil.ToFloat64(OperationsTotal.WithLabelValues("hosttech", "delete", "bulk", "failed")); got != 1 {
		t.Errorf("failed delete count = %f, want 1", got)
	}
}

func TestSetProviderAvailable(t *testing.T) {
	ProviderAvailable.Reset()

	SetProviderAvailable("adguard", "adguardhome", true)
	if got := testutil.ToFloat64(ProviderAvailable.WithLabelValues("adguard", "adguardhome")); got != 1 {
		t.Errorf("available = %f, want 1", got)
	}

	SetProviderAvailable("adguard", "adguardhome", false)
	if got := testutil.ToFloat64(ProviderAvailable.WithLabelValues("adguard", "adguardhome")); got != 0 {
		t.Errorf("available = %f, want 0", got)
	}
}

func TestMetricsRegistered(t *testing.T) {
	SetBuildInfo("test", "go")

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), Namespace+"_build_info") {
			found = true
		}
	}
	if !found {
		t.Error("zonesync_build_info not registered with the default registry")
	}
}
