// Package upsert applies desired-state objects to the cluster, falling
// back to a delete-and-recreate when the API server rejects an update
// because it touches an immutable field (e.g. a StatefulSet's
// volumeClaimTemplates, or a Service's clusterIP family).
package upsert

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/metrics"
)

// CreateOrUpdateProvider mirrors controllerutil.CreateOrUpdate behind an
// interface so callers can be tested against a stub.
type CreateOrUpdateProvider interface {
	CreateOrUpdate(ctx context.Context, c client.Client, obj client.Object, mutate controllerutil.MutateFn) (controllerutil.OperationResult, error)
}

type createOrUpdateProvider struct{}

func (createOrUpdateProvider) CreateOrUpdate(ctx context.Context, c client.Client, obj client.Object, mutate controllerutil.MutateFn) (controllerutil.OperationResult, error) {
	return controllerutil.CreateOrUpdate(ctx, c, obj, mutate)
}

// DefaultProvider is the CreateOrUpdateProvider used outside of tests.
var DefaultProvider CreateOrUpdateProvider = createOrUpdateProvider{}

// ApplyWithRecreate runs mutate against obj through provider.CreateOrUpdate.
// If the API server rejects the update as touching an immutable field, it
// deletes obj and recreates it from the mutated state, incrementing
// metrics.ReconcileDeployDeleteCreate so operators can see how often this
// fallback fires.
func ApplyWithRecreate(ctx context.Context, c client.Client, provider CreateOrUpdateProvider, kind string, obj client.Object, mutate controllerutil.MutateFn) (controllerutil.OperationResult, error) {
	result, err := provider.CreateOrUpdate(ctx, c, obj, mutate)
	if err == nil {
		return result, nil
	}
	if !isImmutableFieldError(err) {
		return result, kerrors.NewKubeError(fmt.Sprintf("apply %s", kind), err)
	}

	metrics.ReconcileDeployDeleteCreate.WithLabelValues(kind, obj.GetNamespace(), obj.GetName()).Inc()

	if delErr := c.Delete(ctx, obj); delErr != nil && !apierrors.IsNotFound(delErr) {
		return controllerutil.OperationResultNone, kerrors.NewKubeError(fmt.Sprintf("delete %s before recreate", kind), delErr)
	}

	obj.SetResourceVersion("")
	obj.SetUID("")
	if mutateErr := mutate(); mutateErr != nil {
		return controllerutil.OperationResultNone, kerrors.NewKubeError(fmt.Sprintf("recreate %s", kind), mutateErr)
	}
	if createErr := c.Create(ctx, obj); createErr != nil {
		return controllerutil.OperationResultNone, kerrors.NewKubeError(fmt.Sprintf("create %s after delete", kind), createErr)
	}
	return controllerutil.OperationResultCreated, nil
}

// isImmutableFieldError reports whether err is the API server rejecting a
// change to an immutable field, as opposed to any other Invalid error.
func isImmutableFieldError(err error) bool {
	if !apierrors.IsInvalid(err) {
		return false
	}
	statusErr, ok := err.(*apierrors.StatusError)
	if !ok {
		return false
	}
	for _, cause := range statusErr.ErrStatus.Details.Causes {
		if cause.Type == "FieldValueForbidden" || cause.Type == "FieldValueInvalid" {
			return true
		}
	}
	return false
}
