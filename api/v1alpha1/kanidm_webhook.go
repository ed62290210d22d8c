package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/kaniop/kaniop/internal/admission"
)

var kanidmlog = ctrl.Log.WithName("kanidm-webhook")

func (r *Kanidm) SetupWebhookWithManager(mgr ctrl.Manager) error {
	setWebhookReader(mgr)
	return ctrl.NewWebhookManagedBy(mgr).
		For(r).
		Complete()
}

var _ webhook.Validator = &Kanidm{}

func (r *Kanidm) ValidateCreate() error {
	if err := admission.ValidateKanidmSpec(r); err != nil {
		kanidmlog.Info("rejecting kanidm create", "name", r.Name, "reason", err.Error())
		return err
	}
	return nil
}

// ValidateUpdate rejects changes to spec.domain, which every issued
// certificate and every replica's identity is keyed off of.
func (r *Kanidm) ValidateUpdate(old runtime.Object) error {
	oldKanidm, ok := old.(*Kanidm)
	if !ok {
		kanidmlog.Info("unexpected type in ValidateUpdate", "type", old)
		return nil
	}
	return admission.ValidateKanidmUpdate(oldKanidm, r)
}

func (r *Kanidm) ValidateDelete() error {
	return nil
}
