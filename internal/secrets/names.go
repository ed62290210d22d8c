// Package secrets manages the Secrets this operator generates and
// rotates: the Kanidm admin/idm_admin bootstrap passwords, replication
// certificates, and service-account API tokens.
package secrets

import "fmt"

// AdminPasswordName returns the deterministic name of the Secret holding
// a Kanidm instance's generated admin and idm_admin passwords.
func AdminPasswordName(kanidmName string) string {
	return fmt.Sprintf("%s-admin-passwords", kanidmName)
}

// ReplicationCertName returns the deterministic name of the Secret
// holding one replica pod's replication certificate.
func ReplicationCertName(podName string) string {
	return fmt.Sprintf("%s-replication", podName)
}

// APITokenName returns the deterministic name of the Secret holding one
// service account API token, used when the APIToken spec does not
// override it with an explicit SecretName.
func APITokenName(serviceAccountName, label string) string {
	return fmt.Sprintf("%s-%s-api-token", serviceAccountName, label)
}

// CredentialName returns the deterministic name of the Secret holding a
// generated person/service-account/oauth2-client credential, kind being
// the IDM entity kind (e.g. "person", "service_account").
func CredentialName(resourceName, kind string) string {
	return fmt.Sprintf("%s-kanidm-%s-credentials", resourceName, kind)
}

const (
	// AdminPasswordKey is the data key under which the admin password is stored.
	AdminPasswordKey = "ADMIN_PASSWORD"
	// IDMAdminPasswordKey is the data key under which the idm_admin password is stored.
	IDMAdminPasswordKey = "IDM_ADMIN_PASSWORD"
	// ReplicationCertKey is the data key under which a base64url-DER
	// replication certificate is stored.
	ReplicationCertKey = "tls.der.b64url"
	// TokenKey is the data key under which a raw API token or generated
	// credential password is stored.
	TokenKey = "token"

	// RotationEnabledAnnotation records whether a managed Secret is under
	// an active rotation policy ("true"/"false").
	RotationEnabledAnnotation = "kaniop.rs/rotation-enabled"
	// RotationPeriodDaysAnnotation records the rotation policy's period,
	// in days, as a decimal integer.
	RotationPeriodDaysAnnotation = "kaniop.rs/rotation-period-days"
	// LastRotationTimeAnnotation records, as RFC3339, when a managed
	// Secret's contents were last (re)generated.
	LastRotationTimeAnnotation = "kaniop.rs/last-rotation-time"

	// TokenLabelLabel is the label key carrying an API-token Secret's
	// apiTokens[].label, used to find the Secret owned by a given token
	// without depending on its derived or overridden name.
	TokenLabelLabel = "apitoken.kaniop.rs/label"
)
