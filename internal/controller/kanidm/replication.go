package kanidm

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/kerrors"
	"github.com/kaniop/kaniop/internal/secrets"
	"github.com/kaniop/kaniop/internal/upsert"
)

// certExpiryThreshold is the validity window below which a stored
// replication certificate is re-derived ahead of its actual expiry.
const certExpiryThreshold = 30 * 24 * time.Hour

const restartedAtAnnotation = "kaniop.rs/cert-rotated-at"

var certExtractCommand = []string{"kanidmd", "domain", "show-replication-certificate"}

// RunCertExtract execs the command that prints a replica's own DER
// certificate, base64url-encoded, to stdout.
func RunCertExtract(ctx context.Context, exec ExecFunc, pod string) (string, error) {
	out, err := exec(ctx, pod, "kanidmd", certExtractCommand)
	if err != nil {
		return "", fmt.Errorf("extracting replication cert for %s: %w", pod, err)
	}
	return strings.TrimSpace(out), nil
}

// replicaCertState reads podName's stored replication certificate, if
// any, and reports its lifecycle state relative to expectedHostname and
// now. A missing secret means the cert has never been derived.
func replicaCertState(ctx context.Context, c client.Client, namespace, podName, expectedHostname string, now time.Time) (string, error) {
	secret := &corev1.Secret{}
	err := c.Get(ctx, client.ObjectKey{Namespace: namespace, Name: secrets.ReplicationCertName(podName)}, secret)
	if apierrors.IsNotFound(err) {
		return "Pending", nil
	}
	if err != nil {
		return "", kerrors.NewKubeError("get replication cert secret", err)
	}

	der, err := base64.RawURLEncoding.DecodeString(string(secret.Data[secrets.ReplicationCertKey]))
	if err != nil {
		return "", kerrors.NewParseError("replication cert", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "", kerrors.NewParseError("replication cert", err)
	}

	if cert.NotAfter.Sub(now) < certExpiryThreshold {
		return "CertificateExpiring", nil
	}
	if !certMatchesHostname(cert, expectedHostname) {
		return "CertificateHostInvalid", nil
	}
	return "Ready", nil
}

func certMatchesHostname(cert *x509.Certificate, hostname string) bool {
	if cert.VerifyHostname(hostname) == nil {
		return true
	}
	for _, name := range cert.DNSNames {
		if name == hostname {
			return true
		}
	}
	return cert.Subject.CommonName == hostname
}

func podHostname(kanidm *v1alpha1.Kanidm, podName, replicaGroup string) string {
	return fmt.Sprintf("%s.%s", podName, headlessServiceName(kanidm.Name, replicaGroup))
}

// reconcileReplicationCerts derives a replication certificate for every
// replica currently reported Pending, applies the corresponding Secret,
// prunes deprecated ones, and hints a rolling restart on any
// StatefulSet whose replicas picked up a new certificate.
func (r *Reconciler) reconcileReplicationCerts(ctx context.Context, kanidm *v1alpha1.Kanidm) error {
	exec := r.execFunc(kanidm.Namespace)
	if exec == nil {
		return nil
	}

	validNames := make(map[string]bool, len(kanidm.Status.ReplicaStatuses))
	changedGroups := make(map[string]bool)

	for i, status := range kanidm.Status.ReplicaStatuses {
		if status.State != "Pending" {
			validNames[secrets.ReplicationCertName(status.Pod)] = true
			continue
		}

		certB64, err := RunCertExtract(ctx, exec, status.Pod)
		if err != nil {
			return err
		}

		secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{
			Name:      secrets.ReplicationCertName(status.Pod),
			Namespace: kanidm.Namespace,
		}}
		_, err = upsert.ApplyWithRecreate(ctx, r.Client, r.CreateOrUpdateProvider, "Secret", secret, func() error {
			secret.Labels = labelsFor(kanidm.Name, status.ReplicaGroup)
			secret.StringData = map[string]string{secrets.ReplicationCertKey: certB64}
			return controllerutil.SetControllerReference(kanidm, secret, r.Client.Scheme())
		})
		if err != nil {
			return err
		}

		validNames[secret.Name] = true
		changedGroups[status.ReplicaGroup] = true
		kanidm.Status.ReplicaStatuses[i].State = "Ready"
	}

	if err := r.pruneReplicationSecrets(ctx, kanidm, validNames); err != nil {
		return err
	}

	for groupName := range changedGroups {
		if err := r.hintRollingRestart(ctx, kanidm, groupName); err != nil {
			return err
		}
	}
	return nil
}

// pruneReplicationSecrets deletes replication-cert Secrets owned by this
// cluster that no longer correspond to any current replica pod.
func (r *Reconciler) pruneReplicationSecrets(ctx context.Context, kanidm *v1alpha1.Kanidm, valid map[string]bool) error {
	list := &corev1.SecretList{}
	if err := r.List(ctx, list, client.InNamespace(kanidm.Namespace), client.MatchingLabels(labelsFor(kanidm.Name, ""))); err != nil {
		return kerrors.NewKubeError("list secrets", err)
	}

	for i := range list.Items {
		s := &list.Items[i]
		if !strings.HasSuffix(s.Name, "-replication") || valid[s.Name] {
			continue
		}
		if err := r.Delete(ctx, s); err != nil && !apierrors.IsNotFound(err) {
			return kerrors.NewKubeError("delete deprecated replication secret", err)
		}
	}
	return nil
}

// hintRollingRestart stamps groupName's StatefulSet pod template with a
// restart annotation, the same mechanism `kubectl rollout restart` uses,
// so kubelet rolls every pod even though the container spec is unchanged.
func (r *Reconciler) hintRollingRestart(ctx context.Context, kanidm *v1alpha1.Kanidm, groupName string) error {
	sts := &appsv1.StatefulSet{}
	err := r.Get(ctx, client.ObjectKey{Namespace: kanidm.Namespace, Name: statefulSetName(kanidm.Name, groupName)}, sts)
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return kerrors.NewKubeError("get statefulset for restart hint", err)
	}

	patch := client.MergeFrom(sts.DeepCopy())
	if sts.Spec.Template.Annotations == nil {
		sts.Spec.Template.Annotations = map[string]string{}
	}
	sts.Spec.Template.Annotations[restartedAtAnnotation] = time.Now().UTC().Format(time.RFC3339)
	if err := r.Patch(ctx, sts, patch); err != nil {
		return kerrors.NewKubeError("patch statefulset for restart hint", err)
	}
	return nil
}
