// Package scheme builds the runtime.Scheme the operator's manager uses:
// the core Kubernetes types its controllers create and own, plus the
// kaniop.rs/v1alpha1 identity types they reconcile.
package scheme

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"

	"github.com/kaniop/kaniop/api/v1alpha1"
)

// New returns a runtime.Scheme pre-registered with every type the
// operator's controllers and webhooks touch.
func New() *runtime.Scheme {
	s := runtime.NewScheme()
	must(clientgoscheme.AddToScheme(s))
	must(corev1.AddToScheme(s))
	must(appsv1.AddToScheme(s))
	must(networkingv1.AddToScheme(s))
	must(v1alpha1.AddToScheme(s))
	return s
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
