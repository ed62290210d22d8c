package v1alpha1

// Condition types reported on a KanidmServiceAccount's status.conditions.
const (
	ServiceAccountExists                 = "Exists"
	ServiceAccountUpdated                = "Updated"
	ServiceAccountValid                  = "Valid"
	ServiceAccountPosixInitialized       = "PosixInitialized"
	ServiceAccountPosixUpdated           = "PosixUpdated"
	ServiceAccountAPITokensUpdated       = "ApiTokensUpdated"
	ServiceAccountCredentialsInitialized = "CredentialsInitialized"
)

const ReasonTokenCreated = "TokenCreated"
