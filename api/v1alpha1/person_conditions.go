package v1alpha1

// Condition types reported on a KanidmPersonAccount's status.conditions.
const (
	PersonExists                 = "Exists"
	PersonUpdated                = "Updated"
	PersonValid                  = "Valid"
	PersonPosixInitialized       = "PosixInitialized"
	PersonPosixUpdated           = "PosixUpdated"
	PersonCredentialsInitialized = "CredentialsInitialized"
)
