package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func init() {
	SchemeBuilder.Register(&KanidmOAuth2Client{}, &KanidmOAuth2ClientList{})
}

// OAuth2ClaimJoinStrategy selects how multiple claim values are combined.
// +kubebuilder:validation:Enum=array;csv;ssv
type OAuth2ClaimJoinStrategy string

// OAuth2ClaimMapEntry maps a claim name, scoped to a group, to a set of values.
type OAuth2ClaimMapEntry struct {
	// ClaimName is the OIDC claim to populate.
	ClaimName string `json:"claimName"`

	// Group is the IDM group whose membership triggers this claim.
	Group string `json:"group"`

	// Values are the claim values granted to members of Group.
	Values []string `json:"values"`

	// JoinStrategy controls how values are combined when multiple groups
	// contribute to the same claim.
	// +optional
	JoinStrategy OAuth2ClaimJoinStrategy `json:"joinStrategy,omitempty"`
}

// OAuth2ScopeMapEntry maps an IDM group to a set of granted OAuth2 scopes.
type OAuth2ScopeMapEntry struct {
	// Group is the IDM group granted these scopes.
	Group string `json:"group"`

	// Scopes granted to members of Group.
	Scopes []string `json:"scopes"`
}

// KanidmOAuth2ClientSpec is the desired state of an OAuth2 RS entry.
type KanidmOAuth2ClientSpec struct {
	// KanidmRef selects the owning Kanidm instance.
	KanidmRef KanidmRef `json:"kanidmRef"`

	// KanidmName overrides the IDM name. Immutable.
	// +optional
	KanidmName string `json:"kanidmName,omitempty"`

	// DisplayName is the client's friendly name.
	// +optional
	DisplayName string `json:"displayName,omitempty"`

	// Origin is the client's origin URL, compared with normalized URL
	// equality (trailing-slash tolerant, percent-encoding canonicalized,
	// scheme+host lowercased).
	Origin string `json:"origin"`

	// Public selects the public (PKCE, no secret) vs. confidential (basic
	// secret) client type. Immutable.
	// +optional
	Public bool `json:"public,omitempty"`

	// RedirectUrls lists additional valid redirect URLs beyond Origin.
	// +optional
	RedirectUrls []string `json:"redirectUrls,omitempty"`

	// ScopeMaps maps IDM groups to granted scopes.
	// +optional
	ScopeMaps []OAuth2ScopeMapEntry `json:"scopeMaps,omitempty"`

	// SupScopeMaps maps IDM groups to supplementary scopes.
	// +optional
	SupScopeMaps []OAuth2ScopeMapEntry `json:"supScopeMaps,omitempty"`

	// ClaimMaps maps (claimName, group) pairs to claim values.
	// +optional
	ClaimMaps []OAuth2ClaimMapEntry `json:"claimMaps,omitempty"`

	// StrictRedirectUrl enforces exact redirect URL matching.
	// +optional
	StrictRedirectUrl bool `json:"strictRedirectUrl,omitempty"`

	// AllowInsecureClientDisablePkce disables PKCE. Mutually exclusive with
	// Public=true.
	// +optional
	AllowInsecureClientDisablePkce bool `json:"allowInsecureClientDisablePkce,omitempty"`

	// PreferShortUsername prefers the short username over the SPN in
	// tokens.
	// +optional
	PreferShortUsername bool `json:"preferShortUsername,omitempty"`

	// AllowLocalhostRedirect permits localhost redirect URLs. Requires
	// Public=true.
	// +optional
	AllowLocalhostRedirect bool `json:"allowLocalhostRedirect,omitempty"`

	// LegacyCrypto enables RS256-compatible legacy signing.
	// +optional
	LegacyCrypto bool `json:"legacyCrypto,omitempty"`

	// ImageURL is shown in the OAuth2 application portal.
	// +optional
	ImageURL string `json:"imageUrl,omitempty"`
}

// KanidmOAuth2ClientStatus is the observed state of an OAuth2 RS entry.
type KanidmOAuth2ClientStatus struct {
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty" patchStrategy:"merge" patchMergeKey:"type"`
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +optional
	Ready bool `json:"ready,omitempty"`

	// AppliedScopeMapGroups records the groups last pushed to Kanidm via
	// ScopeMaps, so the next reconcile can delete groups removed from spec
	// without needing to read scope maps back from the server.
	// +optional
	AppliedScopeMapGroups []string `json:"appliedScopeMapGroups,omitempty"`

	// AppliedSupScopeMapGroups is AppliedScopeMapGroups for SupScopeMaps.
	// +optional
	AppliedSupScopeMapGroups []string `json:"appliedSupScopeMapGroups,omitempty"`

	// AppliedClaimMapKeys records "claimName/group" pairs last pushed via
	// ClaimMaps, so removed entries can be deleted the same way.
	// +optional
	AppliedClaimMapKeys []string `json:"appliedClaimMapKeys,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Ready",type=boolean,JSONPath=`.status.ready`
type KanidmOAuth2Client struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   KanidmOAuth2ClientSpec   `json:"spec,omitempty"`
	Status KanidmOAuth2ClientStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true
type KanidmOAuth2ClientList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []KanidmOAuth2Client `json:"items"`
}
