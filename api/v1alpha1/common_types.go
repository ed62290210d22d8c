package v1alpha1

// KanidmRef points an identity resource at the Kanidm instance that owns it.
type KanidmRef struct {
	// Name of the Kanidm custom resource.
	Name string `json:"name"`

	// Namespace of the Kanidm custom resource. Defaults to the identity
	// resource's own namespace.
	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// APITokenRotationPolicy governs automatic rotation of generated API-token secrets.
type APITokenRotationPolicy struct {
	// Enabled turns on age-based rotation.
	// +optional
	Enabled bool `json:"enabled,omitempty"`

	// PeriodDays is the rotation interval.
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:default=30
	PeriodDays int `json:"periodDays,omitempty"`
}

// APIToken declares one service-account API token to maintain server-side.
type APIToken struct {
	// Label must be unique (case-insensitive) within the owning resource.
	Label string `json:"label"`

	// Purpose describes the intended use; passed through to Kanidm.
	// +optional
	Purpose string `json:"purpose,omitempty"`

	// ExpiryUnix is the token's expiry as a Unix timestamp. Zero means
	// never expires.
	// +optional
	ExpiryUnix *int64 `json:"expiryUnix,omitempty"`

	// SecretName overrides the deterministic Secret name
	// `<resource>-<label>-api-token`. Must be unique within the resource.
	// +optional
	SecretName string `json:"secretName,omitempty"`

	// Rotation controls automatic rotation of this token.
	// +optional
	Rotation *APITokenRotationPolicy `json:"rotation,omitempty"`
}

// CredentialGenerationPolicy controls server-side password generation for
// persons and service accounts.
type CredentialGenerationPolicy struct {
	// Enabled generates (or keeps generated) a password and stores it in a
	// managed Secret. When false, any previously managed Secret is deleted.
	// +optional
	Enabled bool `json:"enabled,omitempty"`

	// Rotation controls automatic rotation of the generated credential.
	// +optional
	Rotation *APITokenRotationPolicy `json:"rotation,omitempty"`
}
