package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func init() {
	SchemeBuilder.Register(&KanidmGroup{}, &KanidmGroupList{})
}

// KanidmGroupSpec is the desired state of a group entry.
type KanidmGroupSpec struct {
	// KanidmRef selects the owning Kanidm instance.
	KanidmRef KanidmRef `json:"kanidmRef"`

	// KanidmName overrides the IDM name. Immutable.
	// +optional
	KanidmName string `json:"kanidmName,omitempty"`

	// Mail lists the group's email addresses.
	// +optional
	Mail []string `json:"mail,omitempty"`

	// Members lists the full, authoritative member set (SPN or bare name).
	// The operator overwrites the server-side member list to match this
	// exactly; it does not merge.
	// +optional
	Members []string `json:"members,omitempty"`

	// EntryManagedBy names the group delegated to manage this entry.
	// NOTE: changes to this field on an existing group are not currently
	// propagated server-side; see the Updated condition's message.
	// +optional
	EntryManagedBy string `json:"entryManagedBy,omitempty"`

	// PosixGidNumber, when set, extends the entry as a POSIX group.
	// +optional
	PosixGidNumber *int32 `json:"posixGidNumber,omitempty"`
}

// KanidmGroupStatus is the observed state of a group entry.
type KanidmGroupStatus struct {
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
type KanidmGroup struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   KanidmGroupSpec   `json:"spec,omitempty"`
	Status KanidmGroupStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type KanidmGroupList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []KanidmGroup `json:"items"`
}
