// Package credential manages the generated-password Secret backing a
// person or service account's CredentialGenerationPolicy: creating,
// rotating on schedule, and tearing it down when generation is disabled,
// and pushing the generated value into Kanidm as the account's primary
// credential.
package credential

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/kanidmclient"
	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/secrets"
)

// Reconcile converges the generated-credential Secret for owner against
// policy and, whenever a new password is generated, pushes it into
// Kanidm as idmName's primary credential. changed reports whether a new
// password was generated this call.
func Reconcile(ctx context.Context, c client.Client, kc *kanidmclient.Client, owner client.Object, idmKind, idmName string, policy *v1alpha1.CredentialGenerationPolicy) (changed bool, err error) {
	name := secrets.CredentialName(owner.GetName(), idmKind)
	key := client.ObjectKey{Namespace: owner.GetNamespace(), Name: name}

	existing := &corev1.Secret{}
	err = c.Get(ctx, key, existing)
	if err != nil && !apierrors.IsNotFound(err) {
		return false, kerrors.NewKubeError("get credential secret", err)
	}
	exists := err == nil

	if policy == nil || !policy.Enabled {
		if exists {
			if err := c.Delete(ctx, existing); err != nil && !apierrors.IsNotFound(err) {
				return false, kerrors.NewKubeError("delete credential secret", err)
			}
		}
		return false, nil
	}

	if exists {
		rotatedAt := secrets.ParseRotatedAt(existing.Annotations[secrets.LastRotationTimeAnnotation])
		if !secrets.RotationDue(policy.Rotation, rotatedAt, time.Now()) {
			return false, nil
		}
	}

	password, err := secrets.GeneratePassword()
	if err != nil {
		return false, err
	}

	secret := existing
	if !exists {
		secret = &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: owner.GetNamespace()}}
	}
	rotationEnabled, periodDays := false, 0
	if policy.Rotation != nil {
		rotationEnabled, periodDays = policy.Rotation.Enabled, policy.Rotation.PeriodDays
	}
	secret.Annotations = secrets.SetRotationAnnotations(secret.Annotations, rotationEnabled, periodDays, time.Now())
	secret.StringData = map[string]string{secrets.TokenKey: password}
	if err := controllerutil.SetControllerReference(owner, secret, c.Scheme()); err != nil {
		return false, fmt.Errorf("setting owner reference on credential secret: %w", err)
	}

	if exists {
		if err := c.Update(ctx, secret); err != nil {
			return false, kerrors.NewKubeError("update credential secret", err)
		}
	} else {
		if err := c.Create(ctx, secret); err != nil {
			return false, kerrors.NewKubeError("create credential secret", err)
		}
	}

	if err := kc.SetPrimaryPassword(ctx, idmKind, idmName, password); err != nil {
		return false, fmt.Errorf("setting primary credential for %s %s: %w", idmKind, idmName, err)
	}
	return true, nil
}
