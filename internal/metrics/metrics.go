// Package metrics provides Prometheus metrics for zonesync.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names use the zonesync_ prefix.
const (
	Namespace = "zonesync"
)

var (
	// BuildInfo exposes the running version.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "build_info",
			Help:      "Build information, value is always 1.",
		},
		[]string{"version", "go_version"},
	)

	// ReconciliationsTotal counts reconciliation runs by outcome.
	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconciliations_total",
			Help:      "Total number of zone reconciliations by provider, zone and status.",
		},
		[]string{"provider", "zone", "status"},
	)

	// ReconciliationDuration observes how long a zone reconciliation takes.
	ReconciliationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Duration of zone reconciliations in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "zone"},
	)

	// OperationsTotal counts record writes.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "record_operations_total",
			Help:      "Total number of record operations by provider, kind, mode and status.",
		},
		[]string{"provider", "kind", "mode", "status"},
	)

	// PlannedOperations is the number of operations of the last run per zone.
	PlannedOperations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "planned_operations",
			Help:      "Number of operations planned by the last reconciliation of a zone.",
		},
		[]string{"provider", "zone"},
	)

	// ReconcileWarnings counts keep_and_warn warnings.
	ReconcileWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconcile_warnings_total",
			Help:      "Total number of record sets kept despite differing from the desired state.",
		},
		[]string{"provider", "zone"},
	)

	// LastReconcileTimestamp is the unix time of the last successful run per zone.
	LastReconcileTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful reconciliation of a zone.",
		},
		[]string{"provider", "zone"},
	)

	// ProviderAvailable is 1 when a provider instance is connected.
	ProviderAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "provider_available",
			Help:      "Whether a provider instance is initialized and reachable (1) or not (0).",
		},
		[]string{"provider", "type"},
	)

	// HTTPRequestsTotal counts outgoing provider API requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_http_requests_total",
			Help:      "Total number of provider API requests by method and status code.",
		},
		[]string{"method", "code"},
	)
)

func init() {
	prometheus.MustRegister(
		BuildInfo,
		ReconciliationsTotal,
		ReconciliationDuration,
		OperationsTotal,
		PlannedOperations,
		ReconcileWarnings,
		LastReconcileTimestamp,
		ProviderAvailable,
		HTTPRequestsTotal,
	)
}

// SetBuildInfo publishes version information.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// RecordReconciliation records the outcome of one zone reconciliation.
func RecordReconciliation(provider, zone, status string, duration time.Duration) {
	ReconciliationsTotal.WithLabelValues(provider, zone, status).Inc()
	ReconciliationDuration.WithLabelValues(provider, zone).Observe(duration.Seconds())
	if status == "success" {
		LastReconcileTimestamp.WithLabelValues(provider, zone).SetToCurrentTime()
	}
}

// RecordOperation records one record write.
func RecordOperation(provider, kind, mode, status string) {
	OperationsTotal.WithLabelValues(provider, kind, mode, status).Inc()
}

// SetProviderAvailable records whether a provider instance is reachable.
func SetProviderAvailable(provider, typeName string, available bool) {
	v := 0.0
	if available {
		v = 1
	}
	ProviderAvailable.WithLabelValues(provider, typeName).Set(v)
}
