// Package group reconciles KanidmGroup resources against a Kanidm
// instance's group entries: create-if-missing, authoritative member-list
// overwrite, mail set-or-purge, optional POSIX extension, and the
// entry-managed-by field's known server-side limitation.
package group

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/clientpool"
	"github.com/kaniop/kaniop/internal/events"
	"github.com/kaniop/kaniop/internal/finalizer"
	"github.com/kaniop/kaniop/internal/idmdiff"
	"github.com/kaniop/kaniop/internal/identityref"
	"github.com/kaniop/kaniop/internal/kanidmclient"
	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/metrics"
	"github.com/kaniop/kaniop/internal/nsselector"
)

const (
	finalizerName   = "kaniop.rs/group-controller"
	controllerName  = "group"
	idmKind         = "group"
	defaultInterval = 2 * time.Minute
	requeueSoon     = 500 * time.Millisecond
	reasonAsExpected = "AsExpected"

	attrMail = "mail"
)

// Reconciler reconciles KanidmGroup resources.
type Reconciler struct {
	client.Client
	Pool     *clientpool.Pool
	Recorder *events.Recorder
}

func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.KanidmGroup{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 5}).
		Complete(r)
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues("group", req.NamespacedName)
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues(controllerName).Observe(time.Since(start).Seconds())
	}()

	group := &v1alpha1.KanidmGroup{}
	if err := r.Get(ctx, req.NamespacedName, group); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("getting group: %w", err)
	}
	originalObj := group.DeepCopy()

	done, err := finalizer.EnsureWithCleanup(ctx, r.Client, group, finalizerName, func(ctx context.Context) error {
		return r.cleanup(ctx, group)
	})
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "finalizer").Inc()
		return ctrl.Result{}, err
	}
	if done {
		return ctrl.Result{}, nil
	}

	kanidm, err := identityref.Resolve(ctx, r.Client, group.Spec.KanidmRef, group.Namespace)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "resolve").Inc()
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}
	if !kanidm.Status.Ready {
		logger.Info("waiting for Kanidm instance to become ready")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if inScope, err := nsselector.Matches(ctx, r.Client, kanidm.Spec.GroupNamespaceSelector, kanidm.Namespace, group.Namespace); err != nil {
		return ctrl.Result{}, err
	} else if !inScope {
		logger.Info("group's namespace is not in scope for this Kanidm's groupNamespaceSelector")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}

	kc, err := r.Pool.Get(ctx, identityref.PoolKey(kanidm))
	if err != nil {
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}

	idmName := identityref.IDMName(group.Spec.KanidmName, group.Name)
	changed, mutateErr := r.converge(ctx, kc, group, idmName)

	group.Status.ObservedGeneration = group.Generation
	group.Status.Ready = computeReady(group)
	if err := r.Status().Patch(ctx, group, client.MergeFrom(originalObj)); err != nil {
		return ctrl.Result{}, fmt.Errorf("patching status: %w", err)
	}

	if mutateErr != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "converge").Inc()
		if kerrors.IsRetryable(mutateErr) {
			return ctrl.Result{}, mutateErr
		}
		r.Recorder.Warning(group, v1alpha1.ReasonKanidmClientError, mutateErr.Error())
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if changed {
		return ctrl.Result{RequeueAfter: requeueSoon}, nil
	}
	return ctrl.Result{RequeueAfter: defaultInterval}, nil
}

func (r *Reconciler) converge(ctx context.Context, kc *kanidmclient.Client, group *v1alpha1.KanidmGroup, idmName string) (changed bool, err error) {
	entity, err := kc.GetEntity(ctx, idmKind, idmName)
	if err != nil {
		if !kerrors.IsNotFoundClientError(err) {
			return false, err
		}
		if err := kc.CreateEntity(ctx, idmKind, kanidmclient.Entity{Attrs: map[string][]string{}}); err != nil {
			setCondition(group, v1alpha1.GroupExists, metav1.ConditionFalse, "CreateFailed", err.Error())
			return false, err
		}
		setCondition(group, v1alpha1.GroupExists, metav1.ConditionTrue, "Created", "")
		entity = &kanidmclient.Entity{Attrs: map[string][]string{}}
		changed = true
	} else {
		setCondition(group, v1alpha1.GroupExists, metav1.ConditionTrue, "Found", "")
	}

	if !idmdiff.EqualNameSet(entity.Attrs["member"], group.Spec.Members) {
		if err := kc.SetGroupMembers(ctx, idmName, group.Spec.Members); err != nil {
			setCondition(group, v1alpha1.GroupMembersUpdated, metav1.ConditionFalse, "UpdateFailed", err.Error())
			return changed, err
		}
		setCondition(group, v1alpha1.GroupMembersUpdated, metav1.ConditionTrue, "Applied",
			idmdiff.Explain(group.Spec.Members, entity.Attrs["member"]))
		changed = true
	} else {
		setCondition(group, v1alpha1.GroupMembersUpdated, metav1.ConditionTrue, "UpToDate", "")
	}

	if !idmdiff.EqualNameSet(entity.Attrs[attrMail], group.Spec.Mail) {
		if len(group.Spec.Mail) == 0 {
			if err := kc.PurgeAttr(ctx, idmKind, idmName, attrMail); err != nil {
				setCondition(group, v1alpha1.GroupMailUpdated, metav1.ConditionFalse, "PurgeFailed", err.Error())
				return changed, err
			}
			setCondition(group, v1alpha1.GroupMailUpdated, metav1.ConditionTrue, "Purged", "")
		} else {
			if err := kc.SetAttr(ctx, idmKind, idmName, attrMail, group.Spec.Mail); err != nil {
				setCondition(group, v1alpha1.GroupMailUpdated, metav1.ConditionFalse, "UpdateFailed", err.Error())
				return changed, err
			}
			setCondition(group, v1alpha1.GroupMailUpdated, metav1.ConditionTrue, "Applied", "")
		}
		changed = true
	} else {
		setCondition(group, v1alpha1.GroupMailUpdated, metav1.ConditionTrue, "UpToDate", "")
	}

	// entry_managed_by is accepted at creation but Kanidm does not expose
	// an endpoint to change it on an already-existing group; surface that
	// limitation in the condition instead of silently no-op'ing.
	if group.Spec.EntryManagedBy != "" {
		if !idmdiff.EqualNameSet(entity.Attrs["entry_managed_by"], []string{group.Spec.EntryManagedBy}) {
			setCondition(group, v1alpha1.GroupManagedUpdated, metav1.ConditionFalse, "NotPropagated",
				"entryManagedBy differs from the server's recorded value; Kanidm does not support updating this field on an existing group")
		} else {
			setCondition(group, v1alpha1.GroupManagedUpdated, metav1.ConditionTrue, reasonAsExpected, "")
		}
	} else {
		setCondition(group, v1alpha1.GroupManagedUpdated, metav1.ConditionTrue, reasonAsExpected, "")
	}

	if group.Spec.PosixGidNumber != nil {
		want := strconv.Itoa(int(*group.Spec.PosixGidNumber))
		if len(entity.Attrs["gidnumber"]) != 1 || entity.Attrs["gidnumber"][0] != want {
			if err := kc.PatchEntity(ctx, idmKind, idmName, map[string][]string{"gidnumber": {want}}); err != nil {
				setCondition(group, v1alpha1.GroupPosixUpdated, metav1.ConditionFalse, "PatchFailed", err.Error())
				return changed, err
			}
			reason := "Updated"
			condType := v1alpha1.GroupPosixUpdated
			if _, hadGid := entity.Attrs["gidnumber"]; !hadGid {
				reason, condType = "Initialized", v1alpha1.GroupPosixInitialized
			}
			setCondition(group, condType, metav1.ConditionTrue, reason, "")
			changed = true
		}
	}

	return changed, nil
}

func (r *Reconciler) cleanup(ctx context.Context, group *v1alpha1.KanidmGroup) error {
	kanidm, err := identityref.Resolve(ctx, r.Client, group.Spec.KanidmRef, group.Namespace)
	if err != nil {
		if kerrors.IsNotFoundKubeError(err) {
			return nil
		}
		return err
	}
	kc, err := r.Pool.Get(ctx, identityref.PoolKey(kanidm))
	if err != nil {
		return err
	}
	idmName := identityref.IDMName(group.Spec.KanidmName, group.Name)
	if err := kc.DeleteEntity(ctx, idmKind, idmName); err != nil && !kerrors.IsNotFoundClientError(err) {
		return err
	}
	return nil
}

func setCondition(group *v1alpha1.KanidmGroup, condType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&group.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: group.Generation,
	})
}

func computeReady(group *v1alpha1.KanidmGroup) bool {
	for _, t := range []string{v1alpha1.GroupExists, v1alpha1.GroupMembersUpdated, v1alpha1.GroupMailUpdated} {
		if !meta.IsStatusConditionTrue(group.Status.Conditions, t) {
			return false
		}
	}
	return true
}
