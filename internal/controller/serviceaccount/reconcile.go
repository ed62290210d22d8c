// Package serviceaccount reconciles KanidmServiceAccount resources
// against a Kanidm instance's service-account entries: create-if-missing,
// attribute convergence, optional POSIX extension, optional generated
// credentials, and the API-token lifecycle (issue once per declared
// token, rotate on schedule, revoke on removal).
package serviceaccount

import (
	"context"
	"fmt"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
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
	"github.com/kaniop/kaniop/internal/secrets"
)

const (
	finalizerName   = "kaniop.rs/serviceaccount-controller"
	controllerName  = "serviceaccount"
	idmKind         = "service_account"
	defaultInterval = 2 * time.Minute
	requeueSoon     = 500 * time.Millisecond
)

// Reconciler reconciles KanidmServiceAccount resources.
type Reconciler struct {
	client.Client
	Pool     *clientpool.Pool
	Recorder *events.Recorder
}

func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.KanidmServiceAccount{}).
		Owns(&corev1.Secret{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 5}).
		Complete(r)
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues("serviceaccount", req.NamespacedName)
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues(controllerName).Observe(time.Since(start).Seconds())
	}()

	sa := &v1alpha1.KanidmServiceAccount{}
	if err := r.Get(ctx, req.NamespacedName, sa); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("getting service account: %w", err)
	}
	originalObj := sa.DeepCopy()

	done, err := finalizer.EnsureWithCleanup(ctx, r.Client, sa, finalizerName, func(ctx context.Context) error {
		return r.cleanup(ctx, sa)
	})
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "finalizer").Inc()
		return ctrl.Result{}, err
	}
	if done {
		return ctrl.Result{}, nil
	}

	kanidm, err := identityref.Resolve(ctx, r.Client, sa.Spec.KanidmRef, sa.Namespace)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "resolve").Inc()
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}
	if !kanidm.Status.Ready {
		logger.Info("waiting for Kanidm instance to become ready")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if inScope, err := nsselector.Matches(ctx, r.Client, kanidm.Spec.ServiceAccountNamespaceSelector, kanidm.Namespace, sa.Namespace); err != nil {
		return ctrl.Result{}, err
	} else if !inScope {
		logger.Info("service account's namespace is not in scope for this Kanidm's serviceAccountNamespaceSelector")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}

	kc, err := r.Pool.Get(ctx, identityref.PoolKey(kanidm))
	if err != nil {
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}

	idmName := identityref.IDMName(sa.Spec.KanidmName, sa.Name)
	changed, mutateErr := r.converge(ctx, kc, sa, idmName)

	sa.Status.ObservedGeneration = sa.Generation
	sa.Status.Ready = computeReady(sa)
	if err := r.Status().Patch(ctx, sa, client.MergeFrom(originalObj)); err != nil {
		return ctrl.Result{}, fmt.Errorf("patching status: %w", err)
	}

	if mutateErr != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "converge").Inc()
		if kerrors.IsRetryable(mutateErr) {
			return ctrl.Result{}, mutateErr
		}
		r.Recorder.Warning(sa, v1alpha1.ReasonKanidmClientError, mutateErr.Error())
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if changed {
		return ctrl.Result{RequeueAfter: requeueSoon}, nil
	}
	return ctrl.Result{RequeueAfter: defaultInterval}, nil
}

func (r *Reconciler) converge(ctx context.Context, kc *kanidmclient.Client, sa *v1alpha1.KanidmServiceAccount, idmName string) (changed bool, err error) {
	entity, err := kc.GetEntity(ctx, idmKind, idmName)
	if err != nil {
		if !kerrors.IsNotFoundClientError(err) {
			return false, err
		}
		if err := kc.CreateEntity(ctx, idmKind, desiredServiceAccountEntity(sa)); err != nil {
			setCondition(sa, v1alpha1.ServiceAccountExists, metav1.ConditionFalse, "CreateFailed", err.Error())
			return false, err
		}
		setCondition(sa, v1alpha1.ServiceAccountExists, metav1.ConditionTrue, "Created", "")
		entity = &kanidmclient.Entity{Attrs: desiredServiceAccountEntity(sa).Attrs}
		changed = true
	} else {
		setCondition(sa, v1alpha1.ServiceAccountExists, metav1.ConditionTrue, "Found", "")
	}

	attrDiff := diffServiceAccountAttrs(sa, entity)
	if len(attrDiff) > 0 {
		if err := kc.PatchEntity(ctx, idmKind, idmName, attrDiff); err != nil {
			setCondition(sa, v1alpha1.ServiceAccountUpdated, metav1.ConditionFalse, "PatchFailed", err.Error())
			return changed, err
		}
		setCondition(sa, v1alpha1.ServiceAccountUpdated, metav1.ConditionTrue, "Applied", idmdiff.Explain(attrDiff, entity.Attrs))
		changed = true
	} else {
		setCondition(sa, v1alpha1.ServiceAccountUpdated, metav1.ConditionTrue, "UpToDate", "")
	}
	setCondition(sa, v1alpha1.ServiceAccountValid, metav1.ConditionTrue, "AsExpected", "")

	if sa.Spec.PosixGidNumber != nil {
		posixDiff := diffPosixAttrs(sa, entity)
		if len(posixDiff) > 0 {
			if err := kc.PatchEntity(ctx, idmKind, idmName, posixDiff); err != nil {
				setCondition(sa, v1alpha1.ServiceAccountPosixUpdated, metav1.ConditionFalse, "PatchFailed", err.Error())
				return changed, err
			}
			reason := "Updated"
			condType := v1alpha1.ServiceAccountPosixUpdated
			if _, hadGid := entity.Attrs["gidnumber"]; !hadGid {
				reason, condType = "Initialized", v1alpha1.ServiceAccountPosixInitialized
			}
			setCondition(sa, condType, metav1.ConditionTrue, reason, "")
			changed = true
		}
	}

	tokensChanged, err := r.reconcileAPITokens(ctx, kc, sa, idmName)
	if err != nil {
		setCondition(sa, v1alpha1.ServiceAccountAPITokensUpdated, metav1.ConditionFalse, "TokenError", err.Error())
		return changed, err
	}
	if tokensChanged {
		setCondition(sa, v1alpha1.ServiceAccountAPITokensUpdated, metav1.ConditionTrue, v1alpha1.ReasonTokenCreated, "")
		changed = true
	} else {
		setCondition(sa, v1alpha1.ServiceAccountAPITokensUpdated, metav1.ConditionTrue, reasonAsExpected, "")
	}

	credChanged, err := credential.Reconcile(ctx, r.Client, kc, sa, idmKind, idmName, sa.Spec.CredentialGeneration)
	if err != nil {
		setCondition(sa, v1alpha1.ServiceAccountCredentialsInitialized, metav1.ConditionFalse, "GenerateFailed", err.Error())
		return changed, err
	}
	if credChanged {
		setCondition(sa, v1alpha1.ServiceAccountCredentialsInitialized, metav1.ConditionTrue, "Generated", "")
		changed = true
	}

	return changed, nil
}

// reconcileAPITokens issues a token for every spec.APITokens entry that
// doesn't yet have a Secret, rotates any whose age policy has come due,
// and revokes (both server-side and the Secret) any token Secret this
// service account owns that is no longer named in spec.APITokens.
func (r *Reconciler) reconcileAPITokens(ctx context.Context, kc *kanidmclient.Client, sa *v1alpha1.KanidmServiceAccount, idmName string) (changed bool, err error) {
	wanted := make(map[string]v1alpha1.APIToken, len(sa.Spec.APITokens))
	statuses := make([]v1alpha1.KanidmAPITokenStatus, 0, len(sa.Spec.APITokens))

	for _, tok := range sa.Spec.APITokens {
		wanted[secretNameFor(sa, tok)] = tok

		secretName := secretNameFor(sa, tok)
		existing := &corev1.Secret{}
		err := r.Get(ctx, client.ObjectKey{Namespace: sa.Namespace, Name: secretName}, existing)
		if err != nil && !apierrors.IsNotFound(err) {
			return changed, kerrors.NewKubeError("get api token secret", err)
		}
		exists := err == nil

		needsRotation := false
		if exists {
			rotatedAt := secrets.ParseRotatedAt(existing.Annotations[secrets.LastRotationTimeAnnotation])
			if tok.Rotation != nil {
				needsRotation = secrets.RotationDue(tok.Rotation, rotatedAt, time.Now())
			}
		}

		if exists && !needsRotation {
			statuses = append(statuses, v1alpha1.KanidmAPITokenStatus{
				Label:      tok.Label,
				TokenID:    existing.Annotations[tokenIDAnnotation],
				SecretName: secretName,
			})
			continue
		}

		if exists && needsRotation {
			if oldID := existing.Annotations[tokenIDAnnotation]; oldID != "" {
				if err := kc.RevokeAPIToken(ctx, idmName, oldID); err != nil && !kerrors.IsNotFoundClientError(err) {
					return changed, err
				}
			}
		}

		var expiry int64
		if tok.ExpiryUnix != nil {
			expiry = *tok.ExpiryUnix
		}
		tokenID, rawToken, err := kc.IssueAPIToken(ctx, idmName, tok.Label, tok.Purpose, expiry)
		if err != nil {
			return changed, err
		}

		secret := existing
		if !exists {
			secret = &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: secretName, Namespace: sa.Namespace}}
		}
		rotationEnabled, periodDays := false, 0
		if tok.Rotation != nil {
			rotationEnabled, periodDays = tok.Rotation.Enabled, tok.Rotation.PeriodDays
		}
		secret.Annotations = secrets.SetRotationAnnotations(secret.Annotations, rotationEnabled, periodDays, time.Now())
		secret.Annotations[tokenIDAnnotation] = tokenID
		if secret.Labels == nil {
			secret.Labels = map[string]string{}
		}
		secret.Labels[secrets.TokenLabelLabel] = tok.Label
		secret.StringData = map[string]string{secrets.TokenKey: rawToken}
		if err := controllerutil.SetControllerReference(sa, secret, r.Client.Scheme()); err != nil {
			return changed, fmt.Errorf("setting owner reference on api token secret: %w", err)
		}
		if exists {
			if err := r.Update(ctx, secret); err != nil {
				return changed, kerrors.NewKubeError("update api token secret", err)
			}
		} else {
			if err := r.Create(ctx, secret); err != nil {
				return changed, kerrors.NewKubeError("create api token secret", err)
			}
		}
		statuses = append(statuses, v1alpha1.KanidmAPITokenStatus{Label: tok.Label, TokenID: tokenID, SecretName: secretName})
		changed = true
	}

	if err := r.revokeStaleTokens(ctx, kc, sa, idmName, wanted); err != nil {
		return changed, err
	}

	sa.Status.APITokens = statuses
	return changed, nil
}

// revokeStaleTokens removes any API-token Secret this service account
// owns whose name is no longer present in spec.APITokens, revoking the
// token server-side first.
func (r *Reconciler) revokeStaleTokens(ctx context.Context, kc *kanidmclient.Client, sa *v1alpha1.KanidmServiceAccount, idmName string, wanted map[string]v1alpha1.APIToken) error {
	list := &corev1.SecretList{}
	if err := r.List(ctx, list, client.InNamespace(sa.Namespace)); err != nil {
		return kerrors.NewKubeError("list secrets for stale token cleanup", err)
	}
	for i := range list.Items {
		secret := &list.Items[i]
		if _, want := wanted[secret.Name]; want {
			continue
		}
		if !ownedBy(secret, sa) {
			continue
		}
		tokenID, ok := secret.Annotations[tokenIDAnnotation]
		if !ok {
			continue
		}
		if err := kc.RevokeAPIToken(ctx, idmName, tokenID); err != nil && !kerrors.IsNotFoundClientError(err) {
			return err
		}
		if err := r.Delete(ctx, secret); err != nil && !apierrors.IsNotFound(err) {
			return kerrors.NewKubeError("delete stale api token secret", err)
		}
	}
	return nil
}

func ownedBy(secret *corev1.Secret, sa *v1alpha1.KanidmServiceAccount) bool {
	for _, ref := range secret.OwnerReferences {
		if ref.UID == sa.UID {
			return true
		}
	}
	return false
}

func secretNameFor(sa *v1alpha1.KanidmServiceAccount, tok v1alpha1.APIToken) string {
	if tok.SecretName != "" {
		return tok.SecretName
	}
	return secrets.APITokenName(sa.Name, tok.Label)
}

func (r *Reconciler) cleanup(ctx context.Context, sa *v1alpha1.KanidmServiceAccount) error {
	kanidm, err := identityref.Resolve(ctx, r.Client, sa.Spec.KanidmRef, sa.Namespace)
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
	idmName := identityref.IDMName(sa.Spec.KanidmName, sa.Name)
	if err := kc.DeleteEntity(ctx, idmKind, idmName); err != nil && !kerrors.IsNotFoundClientError(err) {
		return err
	}
	return nil
}

func desiredServiceAccountEntity(sa *v1alpha1.KanidmServiceAccount) kanidmclient.Entity {
	attrs := map[string][]string{}
	if sa.Spec.DisplayName != "" {
		attrs["displayname"] = []string{sa.Spec.DisplayName}
	}
	if sa.Spec.EntryManagedBy != "" {
		attrs["entry_managed_by"] = []string{sa.Spec.EntryManagedBy}
	}
	return kanidmclient.Entity{Attrs: attrs}
}

func diffServiceAccountAttrs(sa *v1alpha1.KanidmServiceAccount, observed *kanidmclient.Entity) map[string][]string {
	diff := map[string][]string{}
	if sa.Spec.DisplayName != "" && !idmdiff.EqualNameSet(observed.Attrs["displayname"], []string{sa.Spec.DisplayName}) {
		diff["displayname"] = []string{sa.Spec.DisplayName}
	}
	if sa.Spec.EntryManagedBy != "" && !idmdiff.EqualNameSet(observed.Attrs["entry_managed_by"], []string{sa.Spec.EntryManagedBy}) {
		diff["entry_managed_by"] = []string{sa.Spec.EntryManagedBy}
	}
	return diff
}

func diffPosixAttrs(sa *v1alpha1.KanidmServiceAccount, observed *kanidmclient.Entity) map[string][]string {
	diff := map[string][]string{}
	want := strconv.Itoa(int(*sa.Spec.PosixGidNumber))
	if len(observed.Attrs["gidnumber"]) != 1 || observed.Attrs["gidnumber"][0] != want {
		diff["gidnumber"] = []string{want}
	}
	if sa.Spec.PosixLoginShell != "" && !idmdiff.EqualNameSet(observed.Attrs["loginshell"], []string{sa.Spec.PosixLoginShell}) {
		diff["loginshell"] = []string{sa.Spec.PosixLoginShell}
	}
	return diff
}

func setCondition(sa *v1alpha1.KanidmServiceAccount, condType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&sa.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: sa.Generation,
	})
}

func computeReady(sa *v1alpha1.KanidmServiceAccount) bool {
	for _, t := range []string{v1alpha1.ServiceAccountExists, v1alpha1.ServiceAccountValid, v1alpha1.ServiceAccountUpdated, v1alpha1.ServiceAccountAPITokensUpdated} {
		if !meta.IsStatusConditionTrue(sa.Status.Conditions, t) {
			return false
		}
	}
	return true
}

// tokenIDAnnotation records the server-assigned token id on the Secret
// holding its raw value, so a later reconcile can revoke the right token
// on rotation or removal without having to list all of a service
// account's tokens from the IDM API.
const tokenIDAnnotation = "kaniop.rs/token-id"

const reasonAsExpected = "AsExpected"
