// Package identityref resolves the Kanidm instance an identity resource
// (person, service account, group, OAuth2 client) points at through its
// KanidmRef, the one piece of cross-cutting logic the four identity
// controllers would otherwise each reimplement.
package identityref

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/clientpool"
	"github.com/kaniop/kaniop/internal/kerrors"
)

// Resolve fetches the Kanidm instance named by ref, defaulting its
// namespace to ownNamespace when unset.
func Resolve(ctx context.Context, c client.Client, ref v1alpha1.KanidmRef, ownNamespace string) (*v1alpha1.Kanidm, error) {
	namespace := ref.Namespace
	if namespace == "" {
		namespace = ownNamespace
	}
	kanidm := &v1alpha1.Kanidm{}
	if err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: ref.Name}, kanidm); err != nil {
		return nil, kerrors.NewKubeError(fmt.Sprintf("get Kanidm %s/%s", namespace, ref.Name), err)
	}
	return kanidm, nil
}

// PoolKey builds the clientpool key a resolved Kanidm instance is cached
// under.
func PoolKey(kanidm *v1alpha1.Kanidm) clientpool.Key {
	return clientpool.Key{Namespace: kanidm.Namespace, Name: kanidm.Name}
}

// IDMName returns override if set, otherwise resourceName: the name every
// identity controller resolves an IDM entry under.
func IDMName(override, resourceName string) string {
	if override != "" {
		return override
	}
	return resourceName
}
