package v1alpha1

// Condition types reported on a KanidmGroup's status.conditions.
const (
	GroupExists           = "Exists"
	GroupMailUpdated      = "MailUpdated"
	GroupMembersUpdated   = "MembersUpdated"
	GroupPosixInitialized = "PosixInitialized"
	GroupPosixUpdated     = "PosixUpdated"
	GroupManagedUpdated   = "ManagedUpdated"
)
