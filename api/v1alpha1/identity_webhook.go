package v1alpha1

import (
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// webhookReader is the client every identity webhook uses to list
// sibling resources for exclusive-ownership checks. Set once by the
// first SetupWebhookWithManager call; every identity kind shares the
// same manager client, so there is no point threading a separate
// reader through each type.
var webhookReader client.Reader

func setWebhookReader(mgr ctrl.Manager) {
	if webhookReader == nil {
		webhookReader = mgr.GetClient()
	}
}
