// Package kanidm reconciles the Kanidm root resource: the StatefulSets,
// Services, Ingress, and bootstrap Secrets backing one IDM cluster, plus
// the version-compatibility and replication-certificate machinery that
// runs alongside them.
package kanidm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/events"
	"github.com/kaniop/kaniop/internal/finalizer"
	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/metrics"
	"github.com/kaniop/kaniop/internal/secrets"
	"github.com/kaniop/kaniop/internal/upsert"
)

const (
	finalizerName  = "kaniop.rs/kanidm-controller"
	controllerName = "kanidm"
	defaultResync  = 2 * time.Minute
)

// Reconciler reconciles a Kanidm root resource.
type Reconciler struct {
	client.Client
	upsert.CreateOrUpdateProvider
	Recorder *events.Recorder

	// Exec and ExecStdin drive the in-pod commands behind the upgrade
	// pre-check, replication-certificate derivation, and admin-password
	// reset. Leaving them nil disables those steps, which is how tests
	// exercise the resource-composition paths in isolation. When nil,
	// execFunc/execStdinFunc fall back to building one from RestConfig
	// and Clientset, scoped to the Kanidm being reconciled, since a pod
	// exec stream is namespaced but one Kanidm instance's namespace
	// isn't known until Reconcile runs.
	Exec      ExecFunc
	ExecStdin ExecStdinFunc

	RestConfig *rest.Config
	Clientset  kubernetes.Interface
}

func (r *Reconciler) execFunc(namespace string) ExecFunc {
	if r.Exec != nil {
		return r.Exec
	}
	if r.RestConfig == nil || r.Clientset == nil {
		return nil
	}
	return NewPodExecFunc(r.RestConfig, r.Clientset, namespace)
}

func (r *Reconciler) execStdinFunc(namespace string) ExecStdinFunc {
	if r.ExecStdin != nil {
		return r.ExecStdin
	}
	if r.RestConfig == nil || r.Clientset == nil {
		return nil
	}
	return NewPodExecStdinFunc(r.RestConfig, r.Clientset, namespace)
}

// SetupWithManager registers the controller with mgr.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.CreateOrUpdateProvider == nil {
		r.CreateOrUpdateProvider = upsert.DefaultProvider
	}
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.Kanidm{}).
		Owns(&appsv1.StatefulSet{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.Secret{}).
		Owns(&networkingv1.Ingress{}).
		WithOptions(controller.Options{
			RateLimiter:             workqueue.NewItemExponentialFailureRateLimiter(2*time.Second, time.Minute),
			MaxConcurrentReconciles: 5,
		}).
		Complete(r)
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues("kanidm", req.NamespacedName)
	start := time.Now()
	defer func() {
		metrics.ReconcileDuration.WithLabelValues(controllerName).Observe(time.Since(start).Seconds())
	}()

	kanidm := &v1alpha1.Kanidm{}
	if err := r.Get(ctx, req.NamespacedName, kanidm); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("getting kanidm: %w", err)
	}

	originalObj := kanidm.DeepCopy()

	done, err := finalizer.EnsureWithCleanup(ctx, r.Client, kanidm, finalizerName, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "finalizer").Inc()
		return ctrl.Result{}, err
	}
	if done {
		return ctrl.Result{}, nil
	}

	// Status is computed from the currently-observed children before any
	// mutation, so the steps below see a coherent view of what already
	// exists rather than what this pass is about to create.
	if err := r.refreshStatus(ctx, kanidm); err != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "status").Inc()
		return ctrl.Result{}, err
	}
	if err := r.Status().Patch(ctx, kanidm, client.MergeFrom(originalObj)); err != nil {
		return ctrl.Result{}, fmt.Errorf("patching status: %w", err)
	}
	statusCheckpoint := kanidm.DeepCopy()

	mutateErr := r.reconcileChildren(ctx, kanidm)

	kanidm.Status.ObservedGeneration = kanidm.Generation
	kanidm.Status.Ready = computeReady(kanidm)
	if err := r.Status().Patch(ctx, kanidm, client.MergeFrom(statusCheckpoint)); err != nil {
		if mutateErr != nil {
			return ctrl.Result{}, fmt.Errorf("reconcile failed (%v) and status patch also failed: %w", mutateErr, err)
		}
		return ctrl.Result{}, fmt.Errorf("patching status: %w", err)
	}

	if mutateErr != nil {
		metrics.ReconcileErrors.WithLabelValues(controllerName, "reconcile").Inc()
		if kerrors.IsRetryable(mutateErr) {
			return ctrl.Result{}, mutateErr
		}
		logger.Info("reconcile did not converge, waiting for external signal", "error", mutateErr.Error())
		return ctrl.Result{RequeueAfter: defaultResync}, nil
	}

	return ctrl.Result{RequeueAfter: defaultResync}, nil
}

// reconcileChildren runs the mutating half of one reconcile pass: admin
// secret bootstrap, replication-certificate derivation, stale child
// cleanup, applying the desired children, and the version-compatibility
// gate, in that order.
func (r *Reconciler) reconcileChildren(ctx context.Context, kanidm *v1alpha1.Kanidm) error {
	if err := r.reconcileAdminSecret(ctx, kanidm); err != nil {
		setInitialized(kanidm, metav1.ConditionFalse, "AdminSecretError", err.Error())
		return err
	}

	if err := r.reconcileReplicationCerts(ctx, kanidm); err != nil {
		return err
	}

	if err := r.pruneStaleStatefulSets(ctx, kanidm); err != nil {
		return err
	}

	skipImageRollout, err := r.reconcileVersionGate(ctx, kanidm)
	if err != nil {
		return err
	}

	if err := r.applyChildren(ctx, kanidm, skipImageRollout); err != nil {
		return err
	}

	return nil
}

// reconcileAdminSecret generates the admin-passwords Secret the first
// time the cluster becomes Available, and resets both accounts'
// passwords in the running IDM to match it.
func (r *Reconciler) reconcileAdminSecret(ctx context.Context, kanidm *v1alpha1.Kanidm) error {
	if !meta.IsStatusConditionTrue(kanidm.Status.Conditions, v1alpha1.KanidmAvailable) ||
		meta.IsStatusConditionTrue(kanidm.Status.Conditions, v1alpha1.KanidmInitialized) {
		return nil
	}

	name := secrets.AdminPasswordName(kanidm.Name)
	existing := &corev1.Secret{}
	err := r.Get(ctx, client.ObjectKey{Namespace: kanidm.Namespace, Name: name}, existing)
	if err == nil {
		setInitialized(kanidm, metav1.ConditionTrue, reasonAsExpected, "")
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return kerrors.NewKubeError("get admin secret", err)
	}

	adminPassword, err := secrets.GeneratePassword()
	if err != nil {
		return err
	}
	idmAdminPassword, err := secrets.GeneratePassword()
	if err != nil {
		return err
	}

	secret := buildAdminSecret(kanidm, adminPassword, idmAdminPassword)
	if err := controllerutil.SetControllerReference(kanidm, secret, r.Client.Scheme()); err != nil {
		return fmt.Errorf("setting owner reference on admin secret: %w", err)
	}
	if err := r.Create(ctx, secret); err != nil {
		return kerrors.NewKubeError("create admin secret", err)
	}

	if execStdin := r.execStdinFunc(kanidm.Namespace); execStdin != nil {
		pod, err := PrimaryPodName(kanidm)
		if err != nil {
			return err
		}
		if err := ResetAdminPassword(ctx, execStdin, pod, "admin", adminPassword); err != nil {
			r.Recorder.Warning(kanidm, v1alpha1.ReasonKanidmError, err.Error())
			return err
		}
		if err := ResetAdminPassword(ctx, execStdin, pod, "idm_admin", idmAdminPassword); err != nil {
			r.Recorder.Warning(kanidm, v1alpha1.ReasonKanidmError, err.Error())
			return err
		}
	}

	setInitialized(kanidm, metav1.ConditionTrue, reasonAsExpected, "")
	return nil
}

// pruneStaleStatefulSets deletes any StatefulSet labeled as belonging to
// this cluster whose replica-group no longer exists in the spec.
func (r *Reconciler) pruneStaleStatefulSets(ctx context.Context, kanidm *v1alpha1.Kanidm) error {
	wanted := make(map[string]bool, len(kanidm.Spec.ReplicaGroups))
	for _, g := range kanidm.Spec.ReplicaGroups {
		wanted[statefulSetName(kanidm.Name, g.Name)] = true
	}

	list := &appsv1.StatefulSetList{}
	if err := r.List(ctx, list, client.InNamespace(kanidm.Namespace), client.MatchingLabels(labelsFor(kanidm.Name, ""))); err != nil {
		return kerrors.NewKubeError("list statefulsets", err)
	}
	for i := range list.Items {
		sts := &list.Items[i]
		if wanted[sts.Name] {
			continue
		}
		if err := r.Delete(ctx, sts); err != nil && !apierrors.IsNotFound(err) {
			return kerrors.NewKubeError("delete stale statefulset", err)
		}
	}
	return nil
}

// applyChildren server-side-applies every StatefulSet, the main and
// per-group headless Services, and the Ingress (if any), concurrently.
// When skipImageRollout is set (the version-compatibility gate blocked
// an upgrade), StatefulSets are left untouched so the running image is
// not rolled forward.
func (r *Reconciler) applyChildren(ctx context.Context, kanidm *v1alpha1.Kanidm, skipImageRollout bool) error {
	group, gctx := errgroup.WithContext(ctx)

	for _, g := range kanidm.Spec.ReplicaGroups {
		g := g
		group.Go(func() error { return r.applyHeadlessService(gctx, kanidm, g) })
		if !skipImageRollout {
			group.Go(func() error { return r.applyStatefulSet(gctx, kanidm, g) })
		}
	}
	group.Go(func() error { return r.applyMainService(gctx, kanidm) })
	group.Go(func() error { return r.applyIngress(gctx, kanidm) })

	return group.Wait()
}

func (r *Reconciler) applyHeadlessService(ctx context.Context, kanidm *v1alpha1.Kanidm, g v1alpha1.KanidmReplicaGroupSpec) error {
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: headlessServiceName(kanidm.Name, g.Name), Namespace: kanidm.Namespace}}
	_, err := upsert.ApplyWithRecreate(ctx, r.Client, r.CreateOrUpdateProvider, "Service", svc, func() error {
		desired := buildHeadlessService(kanidm, g)
		svc.Labels = desired.Labels
		svc.Spec = desired.Spec
		return controllerutil.SetControllerReference(kanidm, svc, r.Client.Scheme())
	})
	return err
}

func (r *Reconciler) applyMainService(ctx context.Context, kanidm *v1alpha1.Kanidm) error {
	svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: ServiceName(kanidm.Name), Namespace: kanidm.Namespace}}
	_, err := upsert.ApplyWithRecreate(ctx, r.Client, r.CreateOrUpdateProvider, "Service", svc, func() error {
		desired := buildService(kanidm)
		svc.Labels = desired.Labels
		svc.Spec.Selector = desired.Spec.Selector
		svc.Spec.Ports = desired.Spec.Ports
		return controllerutil.SetControllerReference(kanidm, svc, r.Client.Scheme())
	})
	return err
}

func (r *Reconciler) applyStatefulSet(ctx context.Context, kanidm *v1alpha1.Kanidm, g v1alpha1.KanidmReplicaGroupSpec) error {
	sts := &appsv1.StatefulSet{ObjectMeta: metav1.ObjectMeta{Name: statefulSetName(kanidm.Name, g.Name), Namespace: kanidm.Namespace}}
	_, err := upsert.ApplyWithRecreate(ctx, r.Client, r.CreateOrUpdateProvider, "StatefulSet", sts, func() error {
		desired := buildStatefulSet(kanidm, g)
		sts.Labels = desired.Labels
		sts.Spec = desired.Spec
		return controllerutil.SetControllerReference(kanidm, sts, r.Client.Scheme())
	})
	return err
}

func (r *Reconciler) applyIngress(ctx context.Context, kanidm *v1alpha1.Kanidm) error {
	desired := buildIngress(kanidm)
	if desired == nil {
		existing := &networkingv1.Ingress{}
		err := r.Get(ctx, client.ObjectKey{Namespace: kanidm.Namespace, Name: kanidm.Name}, existing)
		if apierrors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return kerrors.NewKubeError("get ingress", err)
		}
		if err := r.Delete(ctx, existing); err != nil && !apierrors.IsNotFound(err) {
			return kerrors.NewKubeError("delete orphaned ingress", err)
		}
		return nil
	}

	obj := &networkingv1.Ingress{ObjectMeta: metav1.ObjectMeta{Name: desired.Name, Namespace: kanidm.Namespace}}
	_, err := upsert.ApplyWithRecreate(ctx, r.Client, r.CreateOrUpdateProvider, "Ingress", obj, func() error {
		obj.Labels = desired.Labels
		obj.Annotations = desired.Annotations
		obj.Spec = desired.Spec
		return controllerutil.SetControllerReference(kanidm, obj, r.Client.Scheme())
	})
	return err
}

// reconcileVersionGate extracts the image tag, checks it against the
// operator's known-compatible version, and — once the cluster has at
// least one ready replica to probe — runs the upgrade pre-check. It
// reports whether the StatefulSet rollout should be held back this
// pass.
func (r *Reconciler) reconcileVersionGate(ctx context.Context, kanidm *v1alpha1.Kanidm) (skip bool, err error) {
	if kanidm.Spec.DisableUpgradeChecks {
		return false, nil
	}

	tag, err := ExtractImageTag(kanidm.Spec.Image)
	if err != nil {
		return true, fmt.Errorf("determining image compatibility: %w", err)
	}

	compatible, err := CheckCompatibility(tag)
	if err != nil {
		return true, err
	}

	versionStatus := &v1alpha1.KanidmVersionStatus{ImageTag: tag}
	defer func() { kanidm.Status.Version = versionStatus }()

	if !compatible {
		versionStatus.CompatibilityResult = "Incompatible"
		r.Recorder.Warning(kanidm, v1alpha1.ReasonVersionIncompatible, fmt.Sprintf("image tag %s is older than the minimum supported version", tag))
		return true, nil
	}
	versionStatus.CompatibilityResult = "Compatible"

	exec := r.execFunc(kanidm.Namespace)
	if exec == nil || kanidm.Status.AvailableReplicas == 0 {
		return false, nil
	}

	pod, err := PrimaryPodName(kanidm)
	if err != nil {
		return true, err
	}
	passed, err := RunUpgradeCheck(ctx, exec, pod)
	if err != nil {
		return true, err
	}
	if !passed {
		versionStatus.UpgradeCheckResult = "Failed"
		r.Recorder.Warning(kanidm, v1alpha1.ReasonUpgradeCheckFailed, fmt.Sprintf("kanidmd domain upgrade-check failed for image tag %s", tag))
		return true, nil
	}
	versionStatus.UpgradeCheckResult = "Passed"
	return false, nil
}
