package kanidm

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/metrics"
)

// refreshStatus recomputes replicaStatuses, replica counts, and the
// Available/Progressing/ReplicaFailure conditions from the StatefulSets
// currently owned by kanidm. It runs before any mutation in a pass, so
// the rest of the pass sees a coherent, current view.
func (r *Reconciler) refreshStatus(ctx context.Context, kanidm *v1alpha1.Kanidm) error {
	list := &appsv1.StatefulSetList{}
	if err := r.List(ctx, list, client.InNamespace(kanidm.Namespace), client.MatchingLabels(labelsFor(kanidm.Name, ""))); err != nil {
		return kerrors.NewKubeError("list statefulsets", err)
	}
	byGroup := make(map[string]*appsv1.StatefulSet, len(list.Items))
	for i := range list.Items {
		sts := &list.Items[i]
		byGroup[sts.Labels["kaniop.rs/replica-group"]] = sts
	}

	now := time.Now()
	var desired, available int32
	var replicaStatuses []v1alpha1.KanidmReplicaStatus
	var stuckPending int

	for _, g := range kanidm.Spec.ReplicaGroups {
		desired += g.Replicas
		sts, ok := byGroup[g.Name]
		var ready int32
		if ok {
			ready = sts.Status.ReadyReplicas
		}
		available += ready

		for i := int32(0); i < g.Replicas; i++ {
			podName := fmt.Sprintf("%s-%d", statefulSetName(kanidm.Name, g.Name), i)
			kubeReady := i < ready
			state := "Pending"
			if kubeReady {
				var err error
				state, err = replicaCertState(ctx, r.Client, kanidm.Namespace, podName, podHostname(kanidm, podName, g.Name), now)
				if err != nil {
					return err
				}
			}
			if state == "Pending" && kubeReady {
				stuckPending++
			}
			replicaStatuses = append(replicaStatuses, v1alpha1.KanidmReplicaStatus{
				Pod:          podName,
				ReplicaGroup: g.Name,
				State:        state,
			})
			metrics.ReplicaState.WithLabelValues(kanidm.Name, kanidm.Namespace, podName, state).Set(boolToFloat(state == "Ready"))
		}
	}

	kanidm.Status.Replicas = desired
	kanidm.Status.AvailableReplicas = available
	kanidm.Status.ReplicaStatuses = replicaStatuses

	if available > 0 {
		setAvailable(kanidm, metav1.ConditionTrue, reasonAsExpected, "")
	} else {
		setAvailable(kanidm, metav1.ConditionFalse, "NoReadyReplicas", "no replica is ready yet")
	}

	anyNotReady := false
	for _, rs := range replicaStatuses {
		if rs.State != "Ready" {
			anyNotReady = true
			break
		}
	}
	if anyNotReady || desired != available {
		setProgressing(kanidm, metav1.ConditionTrue, "RolloutInProgress", fmt.Sprintf("%d/%d replicas ready", available, desired))
	} else {
		setProgressing(kanidm, metav1.ConditionFalse, reasonAsExpected, "")
	}

	// A kube-ready pod stuck Pending means replication-certificate
	// derivation is failing, not merely in progress.
	if stuckPending > 0 {
		setReplicaFailure(kanidm, metav1.ConditionTrue, "ReplicationCertificatePending",
			fmt.Sprintf("%d replica(s) ready in kubernetes but without a derived replication certificate", stuckPending))
	} else {
		setReplicaFailure(kanidm, metav1.ConditionFalse, reasonAsExpected, "")
	}

	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
