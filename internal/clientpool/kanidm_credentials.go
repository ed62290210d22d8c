package clientpool

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/secrets"
)

// httpsPort mirrors the port internal/controller/kanidm exposes on the
// Service fronting a cluster's pods; identity controllers never import
// that package directly to avoid a dependency back onto the root
// reconciler, so the port is named again here.
const httpsPort = 8443

// KanidmCredentialSource implements CredentialSource by resolving a
// Kanidm instance's in-cluster Service address and idm_admin password
// from its generated admin Secret.
type KanidmCredentialSource struct {
	client.Client
}

// NewKanidmCredentialSource builds a CredentialSource backed by c.
func NewKanidmCredentialSource(c client.Client) *KanidmCredentialSource {
	return &KanidmCredentialSource{Client: c}
}

// AdminCredentials implements CredentialSource.
func (s *KanidmCredentialSource) AdminCredentials(ctx context.Context, key Key) (baseURL, username, password string, err error) {
	secret := &corev1.Secret{}
	secretKey := types.NamespacedName{Namespace: key.Namespace, Name: secrets.AdminPasswordName(key.Name)}
	if err := s.Get(ctx, secretKey, secret); err != nil {
		return "", "", "", kerrors.NewKubeError("get admin secret for client pool", err)
	}

	raw, ok := secret.Data[secrets.IDMAdminPasswordKey]
	if !ok {
		return "", "", "", kerrors.NewMissingData(secret.Name, secrets.IDMAdminPasswordKey)
	}

	baseURL = fmt.Sprintf("https://%s.%s.svc:%d", key.Name, key.Namespace, httpsPort)
	return baseURL, "idm_admin", string(raw), nil
}
