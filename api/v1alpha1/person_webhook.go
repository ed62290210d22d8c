package v1alpha1

import (
	"context"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/kaniop/kaniop/internal/admission"
	"github.com/kaniop/kaniop/internal/identityref"
)

var personlog = ctrl.Log.WithName("person-webhook")

func (r *KanidmPersonAccount) SetupWebhookWithManager(mgr ctrl.Manager) error {
	setWebhookReader(mgr)
	return ctrl.NewWebhookManagedBy(mgr).
		For(r).
		Complete()
}

var _ webhook.Validator = &KanidmPersonAccount{}

// ValidateCreate rejects a second person claiming the same IDM name
// under the same Kanidm instance.
func (r *KanidmPersonAccount) ValidateCreate() error {
	if webhookReader == nil {
		return nil
	}
	idmName := identityref.IDMName(r.Spec.KanidmName, r.Name)
	if err := admission.CheckExclusiveOwnership(context.Background(), webhookReader, admission.KindPerson, r.Spec.KanidmRef, idmName, r.Namespace, r.Name); err != nil {
		personlog.Info("rejecting person create", "name", r.Name, "reason", err.Error())
		return err
	}
	return nil
}

func (r *KanidmPersonAccount) ValidateUpdate(old runtime.Object) error {
	return nil
}

func (r *KanidmPersonAccount) ValidateDelete() error {
	return nil
}
