package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func init() {
	SchemeBuilder.Register(&KanidmPersonAccount{}, &KanidmPersonAccountList{})
}

// KanidmPersonAccountSpec is the desired state of a person entry.
type KanidmPersonAccountSpec struct {
	// KanidmRef selects the owning Kanidm instance.
	KanidmRef KanidmRef `json:"kanidmRef"`

	// KanidmName overrides the IDM name when the resource name is not a
	// legal IDM identifier. Immutable.
	// +optional
	KanidmName string `json:"kanidmName,omitempty"`

	// DisplayName is the person's friendly name.
	// +optional
	DisplayName string `json:"displayName,omitempty"`

	// Mail lists the person's email addresses; the first is primary.
	// +optional
	Mail []string `json:"mail,omitempty"`

	// EntryManagedBy names the group delegated to manage this entry.
	// +optional
	EntryManagedBy string `json:"entryManagedBy,omitempty"`

	// AccountValidFrom bounds when the account becomes valid (RFC3339).
	// +optional
	AccountValidFrom string `json:"accountValidFrom,omitempty"`

	// AccountExpire bounds when the account expires (RFC3339).
	// +optional
	AccountExpire string `json:"accountExpire,omitempty"`

	// PosixGidNumber, when set, extends the entry as a POSIX account.
	// +optional
	PosixGidNumber *int32 `json:"posixGidNumber,omitempty"`

	// PosixLoginShell is the POSIX login shell.
	// +optional
	PosixLoginShell string `json:"posixLoginShell,omitempty"`

	// CredentialGeneration governs server-side password generation.
	// +optional
	CredentialGeneration *CredentialGenerationPolicy `json:"credentialGeneration,omitempty"`
}

// KanidmPersonAccountStatus is the observed state of a person entry.
type KanidmPersonAccountStatus struct {
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +optional
	Ready bool `json:"ready,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Ready",type=boolean,JSONPath=`.status.ready`
type KanidmPersonAccount struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   KanidmPersonAccountSpec   `json:"spec,omitempty"`
	Status KanidmPersonAccountStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type KanidmPersonAccountList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []KanidmPersonAccount `json:"items"`
}
