package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func init() {
	SchemeBuilder.Register(&Kanidm{}, &KanidmList{})
}

// ReplicationRole declares the replication posture of a replica group.
// +kubebuilder:validation:Enum=writeReplica;writeReplicaNoUI;readOnlyReplica
type ReplicationRole string

const (
	ReplicationRoleWriteReplica     ReplicationRole = "writeReplica"
	ReplicationRoleWriteReplicaNoUI ReplicationRole = "writeReplicaNoUI"
	ReplicationRoleReadOnlyReplica  ReplicationRole = "readOnlyReplica"
)

// KanidmReplicaGroupSpec describes one homogeneous set of IDM replicas.
type KanidmReplicaGroupSpec struct {
	// Name must be unique among a Kanidm's replicaGroups.
	// +kubebuilder:validation:MinLength=1
	// +kubebuilder:validation:MaxLength=40
	Name string `json:"name"`

	// Replicas is the desired pod count for this group. Zero is legal.
	// +kubebuilder:default=1
	// +kubebuilder:validation:Minimum=0
	Replicas int32 `json:"replicas"`

	// Role determines the replication behaviour of pods in this group.
	// +kubebuilder:default=writeReplica
	Role ReplicationRole `json:"role,omitempty"`

	// PrimaryNode marks this group's replicas as the automatic_refresh
	// source for their peers. At most one group (or external node) in the
	// whole spec may set this. Only legal for write roles.
	// +optional
	PrimaryNode *bool `json:"primaryNode,omitempty"`

	// Resources applied to every pod in the group.
	// +optional
	Resources corev1.ResourceRequirements `json:"resources,omitempty"`

	// Affinity applied to every pod in the group.
	// +optional
	Affinity *corev1.Affinity `json:"affinity,omitempty"`

	// Tolerations applied to every pod in the group.
	// +optional
	Tolerations []corev1.Toleration `json:"tolerations,omitempty"`

	// StorageTemplate overrides the root's storage for this group only.
	// +optional
	StorageTemplate *KanidmStorageSpec `json:"storageTemplate,omitempty"`
}

// KanidmExternalReplicationNodeSpec describes a replication peer outside this Kanidm's own replica groups.
type KanidmExternalReplicationNodeSpec struct {
	// Name identifies the peer, used to derive env-var names.
	Name string `json:"name"`

	// Hostname is the peer's replication hostname.
	Hostname string `json:"hostname"`

	// Port is the peer's replication port.
	// +kubebuilder:default=8444
	Port int32 `json:"port"`

	// CertificateSecretRef points at a Secret carrying the peer's
	// replication certificate under key tls.der.b64url.
	CertificateSecretRef corev1.LocalObjectReference `json:"certificateSecretRef"`

	// Type is the replication relationship from this Kanidm's point of view.
	// +kubebuilder:validation:Enum=mutual-pull;pull;allow-pull
	Type string `json:"type"`

	// AutomaticRefresh marks this peer as the automatic_refresh source.
	// At most one external node or replica group may set this across the
	// whole spec.
	// +optional
	AutomaticRefresh bool `json:"automaticRefresh,omitempty"`
}

// KanidmStorageSpec selects exactly one storage backing for a replica group's pods.
type KanidmStorageSpec struct {
	// +optional
	EmptyDir *corev1.EmptyDirVolumeSource `json:"emptyDir,omitempty"`
	// +optional
	Ephemeral *corev1.EphemeralVolumeSource `json:"ephemeral,omitempty"`
	// +optional
	VolumeClaimTemplate *corev1.PersistentVolumeClaimSpec `json:"volumeClaimTemplate,omitempty"`
}

// KanidmIngressSpec configures the optional Ingress in front of the UI/API.
type KanidmIngressSpec struct {
	// IngressClassName selects the ingress controller.
	// +optional
	IngressClassName *string `json:"ingressClassName,omitempty"`

	// Annotations are merged onto the generated Ingress.
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`
}

// KanidmSpec is the desired state of a Kanidm cluster.
type KanidmSpec struct {
	// Domain is the DNS name IDM entries are qualified under. Immutable.
	// +kubebuilder:validation:MinLength=1
	Domain string `json:"domain"`

	// Image is the kanidmd container image.
	Image string `json:"image"`

	// ReplicaGroups lists the replica groups composing this cluster. Order
	// is significant: replicaGroups[0] is the group probed by the upgrade
	// pre-check.
	// +kubebuilder:validation:MinItems=1
	ReplicaGroups []KanidmReplicaGroupSpec `json:"replicaGroups"`

	// ExternalReplicationNodes lists replication peers outside this spec.
	// +optional
	ExternalReplicationNodes []KanidmExternalReplicationNodeSpec `json:"externalReplicationNodes,omitempty"`

	// Ingress exposes the instance externally.
	// +optional
	Ingress *KanidmIngressSpec `json:"ingress,omitempty"`

	// TLSSecretName names the Secret holding the serving certificate
	// mounted into every pod.
	// +optional
	TLSSecretName string `json:"tlsSecretName,omitempty"`

	// PersonNamespaceSelector scopes which namespaces' KanidmPersonAccounts
	// are watched. Nil means "only this Kanidm's own namespace".
	// +optional
	PersonNamespaceSelector *metav1.LabelSelector `json:"personNamespaceSelector,omitempty"`

	// ServiceAccountNamespaceSelector scopes KanidmServiceAccounts.
	// +optional
	ServiceAccountNamespaceSelector *metav1.LabelSelector `json:"serviceAccountNamespaceSelector,omitempty"`

	// OAuth2ClientNamespaceSelector scopes KanidmOAuth2Clients.
	// +optional
	OAuth2ClientNamespaceSelector *metav1.LabelSelector `json:"oauth2ClientNamespaceSelector,omitempty"`

	// GroupNamespaceSelector scopes KanidmGroups.
	// +optional
	GroupNamespaceSelector *metav1.LabelSelector `json:"groupNamespaceSelector,omitempty"`

	// DisableUpgradeChecks skips version-compatibility and
	// `kanidmd domain upgrade-check` execution.
	// +optional
	DisableUpgradeChecks bool `json:"disableUpgradeChecks,omitempty"`

	// LogLevel is passed through to kanidmd.
	// +kubebuilder:validation:Enum=off;error;warn;info;debug;trace
	// +kubebuilder:default=info
	LogLevel string `json:"logLevel,omitempty"`

	// Storage selects exactly one backing for pods that don't override it
	// with a replicaGroup storageTemplate.
	Storage KanidmStorageSpec `json:"storage"`

	// LdapPortName, when set, exposes an additional LDAPS port (3636) on
	// the generated Services under this name.
	// +optional
	LdapPortName string `json:"ldapPortName,omitempty"`

	// PodSecurityContext overrides the generated pods' security context.
	// +optional
	PodSecurityContext *corev1.PodSecurityContext `json:"podSecurityContext,omitempty"`

	// DNSPolicy overrides the generated pods' DNS policy.
	// +optional
	DNSPolicy corev1.DNSPolicy `json:"dnsPolicy,omitempty"`

	// HostNetwork runs pods on the host network.
	// +optional
	HostNetwork bool `json:"hostNetwork,omitempty"`
}

// KanidmReplicaStatus reports the observed state of a single replica pod.
type KanidmReplicaStatus struct {
	// Pod is the StatefulSet pod name this status describes.
	Pod string `json:"pod"`

	// ReplicaGroup is the owning group's name.
	ReplicaGroup string `json:"replicaGroup"`

	// State is the replica's current lifecycle state.
	// +kubebuilder:validation:Enum=Pending;Ready;CertificateExpiring;CertificateHostInvalid
	State string `json:"state"`
}

// KanidmVersionStatus reports the image/version compatibility check outcome.
type KanidmVersionStatus struct {
	// ImageTag is the tag extracted from spec.image.
	ImageTag string `json:"imageTag,omitempty"`

	// UpgradeCheckResult is the outcome of `kanidmd domain upgrade-check`.
	// +kubebuilder:validation:Enum=Passed;Failed
	UpgradeCheckResult string `json:"upgradeCheckResult,omitempty"`

	// CompatibilityResult compares the image tag against the operator's
	// known-compatible Kanidm client version.
	// +kubebuilder:validation:Enum=Compatible;Incompatible
	CompatibilityResult string `json:"compatibilityResult,omitempty"`
}

// KanidmStatus is the observed state of a Kanidm cluster.
type KanidmStatus struct {
	// +optional
	// +patchMergeKey=type
	// +patchStrategy=merge
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`

	// ObservedGeneration reflects metadata.generation at the time the
	// status was last computed.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`

	// Ready rolls up every condition except the informational ones.
	// +optional
	Ready bool `json:"ready,omitempty"`

	// Replicas is the total desired replica count across all groups.
	// +optional
	Replicas int32 `json:"replicas,omitempty"`

	// AvailableReplicas is the total ready replica count across all groups.
	// +optional
	AvailableReplicas int32 `json:"availableReplicas,omitempty"`

	// Version reports the image/compatibility check outcome.
	// +optional
	Version *KanidmVersionStatus `json:"version,omitempty"`

	// ReplicaStatuses reports per-pod replication state.
	// +optional
	ReplicaStatuses []KanidmReplicaStatus `json:"replicaStatuses,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Domain",type=string,JSONPath=`.spec.domain`
// +kubebuilder:printcolumn:name="Ready",type=boolean,JSONPath=`.status.ready`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type Kanidm struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   KanidmSpec   `json:"spec,omitempty"`
	Status KanidmStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type KanidmList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Kanidm `json:"items"`
}
