package kanidm

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kaniop/kaniop/api/v1alpha1"
)

const reasonAsExpected = "AsExpected"

func setAvailable(kanidm *v1alpha1.Kanidm, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&kanidm.Status.Conditions, metav1.Condition{
		Type:               v1alpha1.KanidmAvailable,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: kanidm.Generation,
	})
}

func setProgressing(kanidm *v1alpha1.Kanidm, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&kanidm.Status.Conditions, metav1.Condition{
		Type:               v1alpha1.KanidmProgressing,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: kanidm.Generation,
	})
}

func setInitialized(kanidm *v1alpha1.Kanidm, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&kanidm.Status.Conditions, metav1.Condition{
		Type:               v1alpha1.KanidmInitialized,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: kanidm.Generation,
	})
}

func setReplicaFailure(kanidm *v1alpha1.Kanidm, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&kanidm.Status.Conditions, metav1.Condition{
		Type:               v1alpha1.KanidmReplicaFailure,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: kanidm.Generation,
	})
}

// computeReady rolls up the condition set into a single boolean surfaced
// on the printer column and consumed by dependent identity controllers.
func computeReady(kanidm *v1alpha1.Kanidm) bool {
	return meta.IsStatusConditionTrue(kanidm.Status.Conditions, v1alpha1.KanidmAvailable) &&
		!meta.IsStatusConditionTrue(kanidm.Status.Conditions, v1alpha1.KanidmProgressing) &&
		!meta.IsStatusConditionTrue(kanidm.Status.Conditions, v1alpha1.KanidmReplicaFailure)
}
