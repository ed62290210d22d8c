// Package person reconciles KanidmPersonAccount resources against a
// Kanidm instance's person entries: create-if-missing, attribute
// convergence, optional POSIX extension, and optional generated
// credentials.
package person

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
	"github.com/kaniop/kaniop/internal/credential"
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
	finalizerName   = "kaniop.rs/person-controller"
	controllerName  = "person"
	idmKind         = "person"
	defaultInterval = 2 * time.Minute
	requeueSoon     = 500 * time.Millisecond
)

// Reconciler reconciles KanidmPersonAccount resources.
type Reconciler struct {
	client.Client
	Pool     *clientpool.Pool
	Recorder *events.Recorder
}

func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.KanidmPersonAccount{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 5}).
		Complete(r)
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues("person", req.NamespacedName)
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues(controllerName).Observe(time.Since(start).Seconds())
	}()

	person := &v1alpha1.KanidmPersonAccount{}
	if err := r.Get(ctx, req.NamespacedName, person); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("getting person: %w", err)
	}
	originalObj := person.DeepCopy()

	done, err := finalizer.EnsureWithCleanup(ctx, r.Client, person, finalizerName, func(ctx context.Context) error {
		return r.cleanup(ctx, person)
	})
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "finalizer").Inc()
		return ctrl.Result{}, err
	}
	if done {
		return ctrl.Result{}, nil
	}

	kanidm, err := identityref.Resolve(ctx, r.Client, person.Spec.KanidmRef, person.Namespace)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "resolve").Inc()
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}
	if !kanidm.Status.Ready {
		logger.Info("waiting for Kanidm instance to become ready")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if inScope, err := nsselector.Matches(ctx, r.Client, kanidm.Spec.PersonNamespaceSelector, kanidm.Namespace, person.Namespace); err != nil {
		return ctrl.Result{}, err
	} else if !inScope {
		logger.Info("person's namespace is not in scope for this Kanidm's personNamespaceSelector")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}

	kc, err := r.Pool.Get(ctx, identityref.PoolKey(kanidm))
	if err != nil {
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}

	idmName := identityref.IDMName(person.Spec.KanidmName, person.Name)
	changed, mutateErr := r.converge(ctx, kc, person, idmName)

	person.Status.ObservedGeneration = person.Generation
	person.Status.Ready = computeReady(person)
	if err := r.Status().Patch(ctx, person, client.MergeFrom(originalObj)); err != nil {
		return ctrl.Result{}, fmt.Errorf("patching status: %w", err)
	}

	if mutateErr != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "converge").Inc()
		if kerrors.IsRetryable(mutateErr) {
			return ctrl.Result{}, mutateErr
		}
		r.Recorder.Warning(person, v1alpha1.ReasonKanidmClientError, mutateErr.Error())
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if changed {
		return ctrl.Result{RequeueAfter: requeueSoon}, nil
	}
	return ctrl.Result{RequeueAfter: defaultInterval}, nil
}

// converge fetches (or creates) idmName's person entry and applies every
// attribute still out of sync, in the fixed order Exists, Valid/Updated,
// PosixInitialized/PosixUpdated, CredentialsInitialized.
func (r *Reconciler) converge(ctx context.Context, kc *kanidmclient.Client, person *v1alpha1.KanidmPersonAccount, idmName string) (changed bool, err error) {
	entity, err := kc.GetEntity(ctx, idmKind, idmName)
	if err != nil {
		if !kerrors.IsNotFoundClientError(err) {
			return false, err
		}
		if err := kc.CreateEntity(ctx, idmKind, desiredPersonEntity(person)); err != nil {
			setCondition(person, v1alpha1.PersonExists, metav1.ConditionFalse, "CreateFailed", err.Error())
			return false, err
		}
		setCondition(person, v1alpha1.PersonExists, metav1.ConditionTrue, "Created", "")
		entity = &kanidmclient.Entity{Attrs: desiredPersonEntity(person).Attrs}
		changed = true
	} else {
		setCondition(person, v1alpha1.PersonExists, metav1.ConditionTrue, "Found", "")
	}

	attrDiff := diffPersonAttrs(person, entity)
	if len(attrDiff) > 0 {
		if err := kc.PatchEntity(ctx, idmKind, idmName, attrDiff); err != nil {
			setCondition(person, v1alpha1.PersonUpdated, metav1.ConditionFalse, "PatchFailed", err.Error())
			return changed, err
		}
		setCondition(person, v1alpha1.PersonUpdated, metav1.ConditionTrue, "Applied", idmdiff.Explain(attrDiff, entity.Attrs))
		changed = true
	} else {
		setCondition(person, v1alpha1.PersonUpdated, metav1.ConditionTrue, "UpToDate", "")
	}
	setCondition(person, v1alpha1.PersonValid, metav1.ConditionTrue, "AsExpected", "")

	if person.Spec.PosixGidNumber != nil {
		posixDiff := diffPosixAttrs(person, entity)
		if len(posixDiff) > 0 {
			if err := kc.PatchEntity(ctx, idmKind, idmName, posixDiff); err != nil {
				setCondition(person, v1alpha1.PersonPosixUpdated, metav1.ConditionFalse, "PatchFailed", err.Error())
				return changed, err
			}
			reason := "Updated"
			condType := v1alpha1.PersonPosixUpdated
			if _, hadGid := entity.Attrs["gidnumber"]; !hadGid {
				reason, condType = "Initialized", v1alpha1.PersonPosixInitialized
			}
			setCondition(person, condType, metav1.ConditionTrue, reason, "")
			changed = true
		}
	}

	credChanged, err := credential.Reconcile(ctx, r.Client, kc, person, idmKind, idmName, person.Spec.CredentialGeneration)
	if err != nil {
		setCondition(person, v1alpha1.PersonCredentialsInitialized, metav1.ConditionFalse, "GenerateFailed", err.Error())
		return changed, err
	}
	if credChanged {
		setCondition(person, v1alpha1.PersonCredentialsInitialized, metav1.ConditionTrue, "Generated", "")
		changed = true
	}

	return changed, nil
}

func (r *Reconciler) cleanup(ctx context.Context, person *v1alpha1.KanidmPersonAccount) error {
	kanidm, err := identityref.Resolve(ctx, r.Client, person.Spec.KanidmRef, person.Namespace)
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
	idmName := identityref.IDMName(person.Spec.KanidmName, person.Name)
	if err := kc.DeleteEntity(ctx, idmKind, idmName); err != nil && !kerrors.IsNotFoundClientError(err) {
		return err
	}
	return nil
}

func desiredPersonEntity(person *v1alpha1.KanidmPersonAccount) kanidmclient.Entity {
	attrs := map[string][]string{}
	if person.Spec.DisplayName != "" {
		attrs["displayname"] = []string{person.Spec.DisplayName}
	}
	if len(person.Spec.Mail) > 0 {
		attrs["mail"] = person.Spec.Mail
	}
	if person.Spec.EntryManagedBy != "" {
		attrs["entry_managed_by"] = []string{person.Spec.EntryManagedBy}
	}
	if person.Spec.AccountValidFrom != "" {
		attrs["account_valid_from"] = []string{person.Spec.AccountValidFrom}
	}
	if person.Spec.AccountExpire != "" {
		attrs["account_expire"] = []string{person.Spec.AccountExpire}
	}
	return kanidmclient.Entity{Attrs: attrs}
}

func diffPersonAttrs(person *v1alpha1.KanidmPersonAccount, observed *kanidmclient.Entity) map[string][]string {
	diff := map[string][]string{}
	if person.Spec.DisplayName != "" && !idmdiff.EqualNameSet(observed.Attrs["displayname"], []string{person.Spec.DisplayName}) {
		diff["displayname"] = []string{person.Spec.DisplayName}
	}
	if len(person.Spec.Mail) > 0 && !idmdiff.EqualNameSet(observed.Attrs["mail"], person.Spec.Mail) {
		diff["mail"] = person.Spec.Mail
	}
	if person.Spec.EntryManagedBy != "" && !idmdiff.EqualNameSet(observed.Attrs["entry_managed_by"], []string{person.Spec.EntryManagedBy}) {
		diff["entry_managed_by"] = []string{person.Spec.EntryManagedBy}
	}
	if person.Spec.AccountValidFrom != "" && !idmdiff.EqualNameSet(observed.Attrs["account_valid_from"], []string{person.Spec.AccountValidFrom}) {
		diff["account_valid_from"] = []string{person.Spec.AccountValidFrom}
	}
	if person.Spec.AccountExpire != "" && !idmdiff.EqualNameSet(observed.Attrs["account_expire"], []string{person.Spec.AccountExpire}) {
		diff["account_expire"] = []string{person.Spec.AccountExpire}
	}
	return diff
}

func diffPosixAttrs(person *v1alpha1.KanidmPersonAccount, observed *kanidmclient.Entity) map[string][]string {
	diff := map[string][]string{}
	want := strconv.Itoa(int(*person.Spec.PosixGidNumber))
	if len(observed.Attrs["gidnumber"]) != 1 || observed.Attrs["gidnumber"][0] != want {
		diff["gidnumber"] = []string{want}
	}
	if person.Spec.PosixLoginShell != "" && !idmdiff.EqualNameSet(observed.Attrs["loginshell"], []string{person.Spec.PosixLoginShell}) {
		diff["loginshell"] = []string{person.Spec.PosixLoginShell}
	}
	return diff
}

func setCondition(person *v1alpha1.KanidmPersonAccount, condType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&person.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: person.Generation,
	})
}

func computeReady(person *v1alpha1.KanidmPersonAccount) bool {
	for _, t := range []string{v1alpha1.PersonExists, v1alpha1.PersonValid, v1alpha1.PersonUpdated} {
		if !meta.IsStatusConditionTrue(person.Status.Conditions, t) {
			return false
		}
	}
	return true
}
