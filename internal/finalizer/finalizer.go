// Package finalizer collapses the add-finalizer / check-deletion /
// run-cleanup / remove-finalizer sequence every reconciler in this
// operator repeats into a single call.
package finalizer

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/kaniop/kaniop/internal/kerrors"
)

// CleanupFunc runs when obj is being deleted and still carries name as a
// finalizer. It should be idempotent: it may run more than once if a
// subsequent finalizer removal fails and is retried.
type CleanupFunc func(ctx context.Context) error

// EnsureWithCleanup adds name as a finalizer on obj if it is not being
// deleted and does not already carry it. If obj is being deleted and
// still carries name, it runs cleanup and then removes the finalizer.
//
// It returns done=true when the caller should stop reconciling this pass
// (the object was being deleted and finalization either completed or
// needs to be retried after a requeue).
func EnsureWithCleanup(ctx context.Context, c client.Client, obj client.Object, name string, cleanup CleanupFunc) (done bool, err error) {
	if obj.GetDeletionTimestamp().IsZero() {
		if !controllerutil.ContainsFinalizer(obj, name) {
			controllerutil.AddFinalizer(obj, name)
			if err := c.Update(ctx, obj); err != nil {
				return false, kerrors.NewFinalizerError(obj.GetName(), err)
			}
		}
		return false, nil
	}

	if !controllerutil.ContainsFinalizer(obj, name) {
		return true, nil
	}

	if err := cleanup(ctx); err != nil {
		return true, err
	}

	controllerutil.RemoveFinalizer(obj, name)
	if err := c.Update(ctx, obj); err != nil {
		return true, kerrors.NewFinalizerError(obj.GetName(), err)
	}
	return true, nil
}
