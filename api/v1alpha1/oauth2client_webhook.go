package v1alpha1

import (
	"context"

	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"

	"github.com/kaniop/kaniop/internal/admission"
	"github.com/kaniop/kaniop/internal/identityref"
)

var oauth2clientlog = ctrl.Log.WithName("oauth2client-webhook")

func (r *KanidmOAuth2Client) SetupWebhookWithManager(mgr ctrl.Manager) error {
	setWebhookReader(mgr)
	return ctrl.NewWebhookManagedBy(mgr).
		For(r).
		Complete()
}

var _ webhook.Validator = &KanidmOAuth2Client{}

func (r *KanidmOAuth2Client) ValidateCreate() error {
	if err := admission.ValidateOAuth2ClientSpec(r); err != nil {
		oauth2clientlog.Info("rejecting oauth2 client create", "name", r.Name, "reason", err.Error())
		return err
	}
	if webhookReader == nil {
		return nil
	}
	idmName := identityref.IDMName(r.Spec.KanidmName, r.Name)
	if err := admission.CheckExclusiveOwnership(context.Background(), webhookReader, admission.KindOAuth2Client, r.Spec.KanidmRef, idmName, r.Namespace, r.Name); err != nil {
		oauth2clientlog.Info("rejecting oauth2 client create", "name", r.Name, "reason", err.Error())
		return err
	}
	return nil
}

// ValidateUpdate rejects changes to the client's type (public vs.
// confidential), which cannot be changed server-side without
// recreating the resource-server entry.
func (r *KanidmOAuth2Client) ValidateUpdate(old runtime.Object) error {
	oldClient, ok := old.(*KanidmOAuth2Client)
	if !ok {
		oauth2clientlog.Info("unexpected type in ValidateUpdate", "type", old)
		return nil
	}
	return admission.ValidateOAuth2ClientUpdate(oldClient, r)
}

func (r *KanidmOAuth2Client) ValidateDelete() error {
	return nil
}
