package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func init() {
	SchemeBuilder.Register(&KanidmServiceAccount{}, &KanidmServiceAccountList{})
}

// KanidmServiceAccountSpec is the desired state of a service-account entry.
type KanidmServiceAccountSpec struct {
	// KanidmRef selects the owning Kanidm instance.
	KanidmRef KanidmRef `json:"kanidmRef"`

	// KanidmName overrides the IDM name. Immutable.
	// +optional
	KanidmName string `json:"kanidmName,omitempty"`

	// DisplayName is the service account's friendly name.
	// +optional
	DisplayName string `json:"displayName,omitempty"`

	// EntryManagedBy names the group delegated to manage this entry.
	// +optional
	EntryManagedBy string `json:"entryManagedBy,omitempty"`

	// PosixGidNumber, when set, extends the entry as a POSIX account.
	// +optional
	PosixGidNumber *int32 `json:"posixGidNumber,omitempty"`

	// PosixLoginShell is the POSIX login shell.
	// +optional
	PosixLoginShell string `json:"posixLoginShell,omitempty"`

	// APITokens lists the API tokens to maintain server-side, one Secret
	// each. Labels and explicit secretNames must be unique (case-insensitive).
	// +optional
	APITokens []APIToken `json:"apiTokens,omitempty"`

	// CredentialGeneration governs server-side password generation.
	// +optional
	CredentialGeneration *CredentialGenerationPolicy `json:"credentialGeneration,omitempty"`
}

// KanidmAPITokenStatus reports one server-side token's observed identity.
type KanidmAPITokenStatus struct {
	// Label identifies the token.
	Label string `json:"label"`

	// TokenID is the server-assigned token identifier (changes on rotation).
	TokenID string `json:"tokenId,omitempty"`

	// SecretName is the Secret currently holding the raw token.
	SecretName string `json:"secretName,omitempty"`
}

// KanidmServiceAccountStatus is the observed state of a service-account entry.
type KanidmServiceAccountStatus struct {
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +optional
	Ready bool `json:"ready,omitempty"`
	// +optional
	APITokens []KanidmAPITokenStatus `json:"apiTokens,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Ready",type=boolean,JSONPath=`.status.ready`
type KanidmServiceAccount struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   KanidmServiceAccountSpec   `json:"spec,omitempty"`
	Status KanidmServiceAccountStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type KanidmServiceAccountList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []KanidmServiceAccount `json:"items"`
}
