// Package oauth2client reconciles KanidmOAuth2Client resources against a
// Kanidm instance's OAuth2 resource servers: create-if-missing (public or
// confidential), origin/redirect-URL and scope/claim-map convergence, the
// boolean security-flag set, and, for confidential clients, mirroring
// the server-generated basic secret into a Secret.
package oauth2client

import (
	"context"
	"fmt"
	"sort"
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
	finalizerName    = "kaniop.rs/oauth2client-controller"
	controllerName   = "oauth2client"
	idmKind          = "oauth2"
	defaultInterval  = 2 * time.Minute
	requeueSoon      = 500 * time.Millisecond
	reasonAsExpected = "AsExpected"

	attrStrictRedirectURI      = "oauth2_strict_redirect_uri"
	attrDisablePKCE            = "oauth2_allow_insecure_client_disable_pkce"
	attrPreferShortUsername    = "oauth2_prefer_short_username"
	attrAllowLocalhostRedirect = "oauth2_allow_localhost_redirect"
	attrLegacyCrypto           = "oauth2_jwt_legacy_crypto_enable"
)

// Reconciler reconciles KanidmOAuth2Client resources.
type Reconciler struct {
	client.Client
	Pool     *clientpool.Pool
	Recorder *events.Recorder
}

func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.KanidmOAuth2Client{}).
		Owns(&corev1.Secret{}).
		WithOptions(controller.Options{MaxConcurrentReconciles: 5}).
		Complete(r)
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues("oauth2client", req.NamespacedName)
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues(controllerName).Observe(time.Since(start).Seconds())
	}()

	oc := &v1alpha1.KanidmOAuth2Client{}
	if err := r.Get(ctx, req.NamespacedName, oc); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("getting oauth2 client: %w", err)
	}
	originalObj := oc.DeepCopy()

	done, err := finalizer.EnsureWithCleanup(ctx, r.Client, oc, finalizerName, func(ctx context.Context) error {
		return r.cleanup(ctx, oc)
	})
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "finalizer").Inc()
		return ctrl.Result{}, err
	}
	if done {
		return ctrl.Result{}, nil
	}

	kanidm, err := identityref.Resolve(ctx, r.Client, oc.Spec.KanidmRef, oc.Namespace)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "resolve").Inc()
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}
	if !kanidm.Status.Ready {
		logger.Info("waiting for Kanidm instance to become ready")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if inScope, err := nsselector.Matches(ctx, r.Client, kanidm.Spec.OAuth2ClientNamespaceSelector, kanidm.Namespace, oc.Namespace); err != nil {
		return ctrl.Result{}, err
	} else if !inScope {
		logger.Info("oauth2 client's namespace is not in scope for this Kanidm's oauth2ClientNamespaceSelector")
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}

	kc, err := r.Pool.Get(ctx, identityref.PoolKey(kanidm))
	if err != nil {
		return ctrl.Result{RequeueAfter: defaultInterval}, err
	}

	idmName := identityref.IDMName(oc.Spec.KanidmName, oc.Name)
	changed, mutateErr := r.converge(ctx, kc, oc, idmName)

	oc.Status.ObservedGeneration = oc.Generation
	oc.Status.Ready = computeReady(oc)
	if err := r.Status().Patch(ctx, oc, client.MergeFrom(originalObj)); err != nil {
		return ctrl.Result{}, fmt.Errorf("patching status: %w", err)
	}

	if mutateErr != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "converge").Inc()
		if kerrors.IsRetryable(mutateErr) {
			return ctrl.Result{}, mutateErr
		}
		r.Recorder.Warning(oc, v1alpha1.ReasonKanidmClientError, mutateErr.Error())
		return ctrl.Result{RequeueAfter: defaultInterval}, nil
	}
	if changed {
		return ctrl.Result{RequeueAfter: requeueSoon}, nil
	}
	return ctrl.Result{RequeueAfter: defaultInterval}, nil
}

func (r *Reconciler) converge(ctx context.Context, kc *kanidmclient.Client, oc *v1alpha1.KanidmOAuth2Client, idmName string) (changed bool, err error) {
	entity, err := kc.GetEntity(ctx, idmKind, idmName)
	if err != nil {
		if !kerrors.IsNotFoundClientError(err) {
			return false, err
		}
		if err := kc.CreateOAuth2Client(ctx, idmName, oc.Spec.DisplayName, oc.Spec.Origin, oc.Spec.Public); err != nil {
			setCondition(oc, v1alpha1.OAuth2ClientExists, metav1.ConditionFalse, "CreateFailed", err.Error())
			return false, err
		}
		setCondition(oc, v1alpha1.OAuth2ClientExists, metav1.ConditionTrue, "Created", "")
		entity = &kanidmclient.Entity{Attrs: map[string][]string{
			"displayname":      {oc.Spec.DisplayName},
			"oauth2_rs_origin": {oc.Spec.Origin},
		}}
		changed = true
	} else {
		setCondition(oc, v1alpha1.OAuth2ClientExists, metav1.ConditionTrue, "Found", "")
	}

	attrDiff := map[string][]string{}
	if !idmdiff.EqualNameSet(entity.Attrs["displayname"], []string{oc.Spec.DisplayName}) {
		attrDiff["displayname"] = []string{oc.Spec.DisplayName}
	}
	if !idmdiff.EqualURL(firstOr(entity.Attrs["oauth2_rs_origin"], ""), oc.Spec.Origin) {
		attrDiff["oauth2_rs_origin"] = []string{oc.Spec.Origin}
	}
	if oc.Spec.ImageURL != "" && !idmdiff.EqualNameSet(entity.Attrs["oauth2_rs_name_image"], []string{oc.Spec.ImageURL}) {
		attrDiff["oauth2_rs_name_image"] = []string{oc.Spec.ImageURL}
	}
	if len(attrDiff) > 0 {
		if err := kc.PatchEntity(ctx, idmKind, idmName, attrDiff); err != nil {
			setCondition(oc, v1alpha1.OAuth2ClientUpdated, metav1.ConditionFalse, "PatchFailed", err.Error())
			return changed, err
		}
		setCondition(oc, v1alpha1.OAuth2ClientUpdated, metav1.ConditionTrue, "Applied", idmdiff.Explain(attrDiff, entity.Attrs))
		changed = true
	} else {
		setCondition(oc, v1alpha1.OAuth2ClientUpdated, metav1.ConditionTrue, "UpToDate", "")
	}

	if rc, err := r.reconcileRedirectURLs(ctx, kc, oc, idmName, entity); err != nil {
		setCondition(oc, v1alpha1.OAuth2ClientRedirectUrlUpdated, metav1.ConditionFalse, "UpdateFailed", err.Error())
		return changed, err
	} else if rc {
		setCondition(oc, v1alpha1.OAuth2ClientRedirectUrlUpdated, metav1.ConditionTrue, "Applied", "")
		changed = true
	} else {
		setCondition(oc, v1alpha1.OAuth2ClientRedirectUrlUpdated, metav1.ConditionTrue, "UpToDate", "")
	}

	scopeGroups, rc, err := reconcileScopeMap(ctx, idmName, oc.Spec.ScopeMaps, oc.Status.AppliedScopeMapGroups, kc.UpdateOAuth2ScopeMap, kc.DeleteOAuth2ScopeMap)
	if err != nil {
		setCondition(oc, v1alpha1.OAuth2ClientScopeMapUpdated, metav1.ConditionFalse, "UpdateFailed", err.Error())
		return changed, err
	}
	oc.Status.AppliedScopeMapGroups = scopeGroups
	if rc {
		setCondition(oc, v1alpha1.OAuth2ClientScopeMapUpdated, metav1.ConditionTrue, "Applied", "")
		changed = true
	} else {
		setCondition(oc, v1alpha1.OAuth2ClientScopeMapUpdated, metav1.ConditionTrue, "UpToDate", "")
	}

	supGroups, rc, err := reconcileScopeMap(ctx, idmName, oc.Spec.SupScopeMaps, oc.Status.AppliedSupScopeMapGroups, kc.UpdateOAuth2SupScopeMap, kc.DeleteOAuth2SupScopeMap)
	if err != nil {
		setCondition(oc, v1alpha1.OAuth2ClientSupScopeMapUpdated, metav1.ConditionFalse, "UpdateFailed", err.Error())
		return changed, err
	}
	oc.Status.AppliedSupScopeMapGroups = supGroups
	if rc {
		setCondition(oc, v1alpha1.OAuth2ClientSupScopeMapUpdated, metav1.ConditionTrue, "Applied", "")
		changed = true
	} else {
		setCondition(oc, v1alpha1.OAuth2ClientSupScopeMapUpdated, metav1.ConditionTrue, "UpToDate", "")
	}

	claimKeys, rc, err := r.reconcileClaimMaps(ctx, kc, oc, idmName)
	if err != nil {
		setCondition(oc, v1alpha1.OAuth2ClientClaimMapUpdated, metav1.ConditionFalse, "UpdateFailed", err.Error())
		return changed, err
	}
	oc.Status.AppliedClaimMapKeys = claimKeys
	if rc {
		setCondition(oc, v1alpha1.OAuth2ClientClaimMapUpdated, metav1.ConditionTrue, "Applied", "")
		changed = true
	} else {
		setCondition(oc, v1alpha1.OAuth2ClientClaimMapUpdated, metav1.ConditionTrue, "UpToDate", "")
	}

	flagChanged, err := r.reconcileFlags(ctx, kc, oc, idmName)
	if err != nil {
		return changed, err
	}
	if flagChanged {
		changed = true
	}

	if !oc.Spec.Public {
		secretChanged, err := r.reconcileSecret(ctx, kc, oc, idmName)
		if err != nil {
			setCondition(oc, v1alpha1.OAuth2ClientSecretInitialized, metav1.ConditionFalse, "SecretError", err.Error())
			return changed, err
		}
		if secretChanged {
			setCondition(oc, v1alpha1.OAuth2ClientSecretInitialized, metav1.ConditionTrue, "Generated", "")
			changed = true
		} else {
			setCondition(oc, v1alpha1.OAuth2ClientSecretInitialized, metav1.ConditionTrue, reasonAsExpected, "")
		}
	} else {
		setCondition(oc, v1alpha1.OAuth2ClientSecretInitialized, metav1.ConditionTrue, "NotApplicablePublicClient", "")
	}

	return changed, nil
}

// reconcileRedirectURLs adds URLs present in spec but not observed, and
// removes URLs observed but no longer in spec, comparing under
// idmdiff.EqualURL so formatting differences don't cause churn.
func (r *Reconciler) reconcileRedirectURLs(ctx context.Context, kc *kanidmclient.Client, oc *v1alpha1.KanidmOAuth2Client, idmName string, entity *kanidmclient.Entity) (bool, error) {
	observed := entity.Attrs["oauth2_rs_origin_landing"]
	changed := false

	for _, want := range oc.Spec.RedirectUrls {
		if !containsURL(observed, want) {
			if err := kc.AddOAuth2Origin(ctx, idmName, want); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	for _, have := range observed {
		if !containsURL(oc.Spec.RedirectUrls, have) {
			if err := kc.RemoveOAuth2Origin(ctx, idmName, have); err != nil {
				return changed, err
			}
			changed = true
		}
	}
	return changed, nil
}

func containsURL(urls []string, target string) bool {
	for _, u := range urls {
		if idmdiff.EqualURL(u, target) {
			return true
		}
	}
	return false
}

// reconcileScopeMap diffs spec's (group -> scopes) entries against the
// groups applied on the previous reconcile (mirroring the original
// implementation's status-tracked BTreeSet difference, since Kanidm's
// entity fetch does not expose per-group scope maps to diff against
// directly) and adds/removes only what changed. Shared between ScopeMaps
// and SupScopeMaps since both follow the identical shape. Returns the new
// set of applied groups to persist in status.
func reconcileScopeMap(ctx context.Context, idmName string, spec []v1alpha1.OAuth2ScopeMapEntry, previouslyApplied []string, update func(context.Context, string, string, []string) error, del func(context.Context, string, string) error) ([]string, bool, error) {
	wanted := make(map[string][]string, len(spec))
	for _, entry := range spec {
		wanted[entry.Group] = entry.Scopes
	}

	changed := false
	for group, scopes := range wanted {
		if err := update(ctx, idmName, group, scopes); err != nil {
			return nil, changed, err
		}
		changed = true
	}
	for _, group := range previouslyApplied {
		if _, stillWanted := wanted[group]; stillWanted {
			continue
		}
		if err := del(ctx, idmName, group); err != nil {
			return nil, changed, err
		}
		changed = true
	}

	applied := make([]string, 0, len(wanted))
	for group := range wanted {
		applied = append(applied, group)
	}
	sort.Strings(applied)
	return applied, changed, nil
}

// reconcileClaimMaps applies each (claimName, group) -> values entry and
// its per-claim join strategy, then removes any "claimName/group" pair
// that was applied on a previous reconcile but no longer appears in spec
// (tracked the same way reconcileScopeMap tracks applied groups, since
// the generic entity fetch does not expose existing claim maps to diff
// against directly).
func (r *Reconciler) reconcileClaimMaps(ctx context.Context, kc *kanidmclient.Client, oc *v1alpha1.KanidmOAuth2Client, idmName string) ([]string, bool, error) {
	byClaim := map[string][]v1alpha1.OAuth2ClaimMapEntry{}
	wanted := map[string]bool{}
	for _, entry := range oc.Spec.ClaimMaps {
		byClaim[entry.ClaimName] = append(byClaim[entry.ClaimName], entry)
		wanted[claimMapKey(entry.ClaimName, entry.Group)] = true
	}

	claimNames := make([]string, 0, len(byClaim))
	for name := range byClaim {
		claimNames = append(claimNames, name)
	}
	sort.Strings(claimNames)

	changed := false
	for _, claimName := range claimNames {
		entries := byClaim[claimName]
		for _, entry := range entries {
			if err := kc.UpdateOAuth2ClaimMap(ctx, idmName, claimName, entry.Group, entry.Values); err != nil {
				return nil, changed, err
			}
			changed = true
		}
		join := string(entries[0].JoinStrategy)
		if join == "" {
			join = "array"
		}
		if err := kc.UpdateOAuth2ClaimMapJoin(ctx, idmName, claimName, join); err != nil {
			return nil, changed, err
		}
	}

	for _, key := range oc.Status.AppliedClaimMapKeys {
		if wanted[key] {
			continue
		}
		claimName, group := splitClaimMapKey(key)
		if claimName == "" {
			continue
		}
		if err := kc.DeleteOAuth2ClaimMap(ctx, idmName, claimName, group); err != nil {
			return nil, changed, err
		}
		changed = true
	}

	applied := make([]string, 0, len(wanted))
	for key := range wanted {
		applied = append(applied, key)
	}
	sort.Strings(applied)
	return applied, changed, nil
}

func claimMapKey(claimName, group string) string {
	return claimName + "/" + group
}

func splitClaimMapKey(key string) (claimName, group string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return "", ""
}

func (r *Reconciler) reconcileFlags(ctx context.Context, kc *kanidmclient.Client, oc *v1alpha1.KanidmOAuth2Client, idmName string) (bool, error) {
	flags := []struct {
		attr    string
		value   bool
		condTyp string
	}{
		{attrStrictRedirectURI, oc.Spec.StrictRedirectUrl, v1alpha1.OAuth2ClientStrictRedirectUrlUpdated},
		{attrDisablePKCE, oc.Spec.AllowInsecureClientDisablePkce, v1alpha1.OAuth2ClientDisablePkceUpdated},
		{attrPreferShortUsername, oc.Spec.PreferShortUsername, v1alpha1.OAuth2ClientPreferShortNameUpdated},
		{attrAllowLocalhostRedirect, oc.Spec.AllowLocalhostRedirect, v1alpha1.OAuth2ClientAllowLocalhostRedirectUpdated},
		{attrLegacyCrypto, oc.Spec.LegacyCrypto, v1alpha1.OAuth2ClientLegacyCryptoUpdated},
	}

	changed := false
	for _, f := range flags {
		if err := kc.SetOAuth2Flag(ctx, idmName, f.attr, f.value); err != nil {
			setCondition(oc, f.condTyp, metav1.ConditionFalse, "UpdateFailed", err.Error())
			return changed, err
		}
		setCondition(oc, f.condTyp, metav1.ConditionTrue, reasonAsExpected, "")
		changed = true
	}
	return changed, nil
}

// reconcileSecret mirrors a confidential client's server-generated basic
// secret into a Secret the first time it becomes available; Kanidm does
// not expose a way to tell whether the secret has rotated, so this only
// creates it once and never overwrites an existing one.
func (r *Reconciler) reconcileSecret(ctx context.Context, kc *kanidmclient.Client, oc *v1alpha1.KanidmOAuth2Client, idmName string) (bool, error) {
	name := secrets.CredentialName(oc.Name, idmKind)
	existing := &corev1.Secret{}
	err := r.Get(ctx, client.ObjectKey{Namespace: oc.Namespace, Name: name}, existing)
	if err == nil {
		return false, nil
	}
	if !apierrors.IsNotFound(err) {
		return false, kerrors.NewKubeError("get oauth2 client secret", err)
	}

	value, err := kc.GetOAuth2BasicSecret(ctx, idmName)
	if err != nil {
		return false, err
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: oc.Namespace},
		StringData: map[string]string{secrets.TokenKey: value},
	}
	if err := controllerutil.SetControllerReference(oc, secret, r.Client.Scheme()); err != nil {
		return false, fmt.Errorf("setting owner reference on oauth2 client secret: %w", err)
	}
	if err := r.Create(ctx, secret); err != nil {
		return false, kerrors.NewKubeError("create oauth2 client secret", err)
	}
	return true, nil
}

func (r *Reconciler) cleanup(ctx context.Context, oc *v1alpha1.KanidmOAuth2Client) error {
	kanidm, err := identityref.Resolve(ctx, r.Client, oc.Spec.KanidmRef, oc.Namespace)
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
	idmName := identityref.IDMName(oc.Spec.KanidmName, oc.Name)
	if err := kc.DeleteEntity(ctx, idmKind, idmName); err != nil && !kerrors.IsNotFoundClientError(err) {
		return err
	}
	return nil
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

func setCondition(oc *v1alpha1.KanidmOAuth2Client, condType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(&oc.Status.Conditions, metav1.Condition{
		Type:               condType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: oc.Generation,
	})
}

func computeReady(oc *v1alpha1.KanidmOAuth2Client) bool {
	for _, t := range []string{v1alpha1.OAuth2ClientExists, v1alpha1.OAuth2ClientUpdated, v1alpha1.OAuth2ClientRedirectUrlUpdated} {
		if !meta.IsStatusConditionTrue(oc.Status.Conditions, t) {
			return false
		}
	}
	return true
}
