package v1alpha1

import (
	"context"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/kaniop/kaniop/internal/admission"
	"github.com/kaniop/kaniop/internal/identityref"
)

var serviceaccountlog = ctrl.Log.WithName("serviceaccount-webhook")

func (r *KanidmServiceAccount) SetupWebhookWithManager(mgr ctrl.Manager) error {
	setWebhookReader(mgr)
	return ctrl.NewWebhookManagedBy(mgr).
		For(r).
		Complete()
}

var _ webhook.Validator = &KanidmServiceAccount{}

func (r *KanidmServiceAccount) ValidateCreate() error {
	if webhookReader == nil {
		return nil
	}
	idmName := identityref.IDMName(r.Spec.KanidmName, r.Name)
	if err := admission.CheckExclusiveOwnership(context.Background(), webhookReader, admission.KindServiceAccount, r.Spec.KanidmRef, idmName, r.Namespace, r.Name); err != nil {
		serviceaccountlog.Info("rejecting service account create", "name", r.Name, "reason", err.Error())
		return err
	}
	return nil
}

func (r *KanidmServiceAccount) ValidateUpdate(old runtime.Object) error {
	return nil
}

func (r *KanidmServiceAccount) ValidateDelete() error {
	return nil
}
