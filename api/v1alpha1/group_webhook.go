package v1alpha1

import (
	"context"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/kaniop/kaniop/internal/admission"
	"github.com/kaniop/kaniop/internal/identityref"
)

var grouplog = ctrl.Log.WithName("group-webhook")

func (r *KanidmGroup) SetupWebhookWithManager(mgr ctrl.Manager) error {
	setWebhookReader(mgr)
	return ctrl.NewWebhookManagedBy(mgr).
		For(r).
		Complete()
}

var _ webhook.Validator = &KanidmGroup{}

func (r *KanidmGroup) ValidateCreate() error {
	if webhookReader == nil {
		return nil
	}
	idmName := identityref.IDMName(r.Spec.KanidmName, r.Name)
	if err := admission.CheckExclusiveOwnership(context.Background(), webhookReader, admission.KindGroup, r.Spec.KanidmRef, idmName, r.Namespace, r.Name); err != nil {
		grouplog.Info("rejecting group create", "name", r.Name, "reason", err.Error())
		return err
	}
	return nil
}

func (r *KanidmGroup) ValidateUpdate(old runtime.Object) error {
	return nil
}

func (r *KanidmGroup) ValidateDelete() error {
	return nil
}
