// Package metrics registers the operator's Prometheus collectors once, at
// process start, onto controller-runtime's shared metrics registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	ReconcileDeployDeleteCreateName = "kaniop_reconcile_deploy_delete_create_total"
	ReconcileDeployDeleteCreate     = prometheus.NewCounterVec(prometheus.CounterOpts{
		Help: "Times the operator had to delete and recreate an object because of an immutable field change",
		Name: ReconcileDeployDeleteCreateName,
	}, []string{"kind", "namespace", "name"})

	ReconcileErrorsName = "kaniop_reconcile_errors_total"
	ReconcileErrors     = prometheus.NewCounterVec(prometheus.CounterOpts{
		Help: "Reconcile errors by controller and error category",
		Name: ReconcileErrorsName,
	}, []string{"controller", "category"})

	ReconcileDurationName = "kaniop_reconcile_duration_seconds"
	ReconcileDuration      = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Help:    "Reconcile loop duration by controller",
		Name:    ReconcileDurationName,
		Buckets: prometheus.DefBuckets,
	}, []string{"controller"})

	KanidmClientCallsName = "kaniop_kanidm_client_calls_total"
	KanidmClientCalls     = prometheus.NewCounterVec(prometheus.CounterOpts{
		Help: "Calls made to the Kanidm HTTP API by operation and outcome",
		Name: KanidmClientCallsName,
	}, []string{"operation", "outcome"})

	ReplicaStateName = "kaniop_kanidm_replica_state"
	ReplicaState      = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Help: "Observed replication state per pod (1 for the reported state, 0 otherwise)",
		Name: ReplicaStateName,
	}, []string{"kanidm", "namespace", "pod", "state"})
)

// Register adds every collector in this package to controller-runtime's
// shared registry. Safe to call once at process start; a second call
// would panic on duplicate registration, matching
// prometheus.Registry.MustRegister's own contract.
func Register() {
	crmetrics.Registry.MustRegister(
		ReconcileDeployDeleteCreate,
		ReconcileErrors,
		ReconcileDuration,
		KanidmClientCalls,
		ReplicaState,
	)
}
