package v1alpha1

// Condition types reported on a KanidmOAuth2Client's status.conditions.
const (
	OAuth2ClientExists                        = "Exists"
	OAuth2ClientUpdated                       = "Updated"
	OAuth2ClientRedirectUrlUpdated             = "RedirectUrlUpdated"
	OAuth2ClientScopeMapUpdated                = "ScopeMapUpdated"
	OAuth2ClientSupScopeMapUpdated             = "SupScopeMapUpdated"
	OAuth2ClientClaimMapUpdated                = "ClaimMapUpdated"
	OAuth2ClientStrictRedirectUrlUpdated       = "StrictRedirectUrlUpdated"
	OAuth2ClientDisablePkceUpdated             = "DisablePkceUpdated"
	OAuth2ClientPreferShortNameUpdated         = "PreferShortNameUpdated"
	OAuth2ClientAllowLocalhostRedirectUpdated  = "AllowLocalhostRedirectUpdated"
	OAuth2ClientLegacyCryptoUpdated            = "LegacyCryptoUpdated"
	OAuth2ClientSecretInitialized              = "SecretInitialized"
)
