package v1alpha1

// Condition types reported on a Kanidm's status.conditions.
//
// Conditions are observations, not a state machine: they may flip back and
// forth as the cluster converges and diverges. See
// https://github.com/kubernetes/community/blob/master/contributors/devel/sig-architecture/api-conventions.md#typical-status-properties
const (
	// KanidmAvailable is true once at least one replica across all groups
	// is ready.
	KanidmAvailable = "Available"

	// KanidmProgressing is true while any owned StatefulSet is rolling,
	// any replica is not Ready, or the desired replica count exceeds the
	// available count.
	KanidmProgressing = "Progressing"

	// KanidmInitialized is true once the admin-passwords Secret exists.
	KanidmInitialized = "Initialized"

	// KanidmReplicaFailure is true when a replica has been stuck outside
	// Ready for longer than tolerable (certificate issues, crash loops).
	KanidmReplicaFailure = "ReplicaFailure"
)

// Event reasons emitted by the Kanidm cluster controller.
const (
	ReasonKanidmError         = "KanidmError"
	ReasonKanidmClientError   = "KanidmClientError"
	ReasonTLSSecretNotExists  = "TlsSecretNotExists"
	ReasonUpgradeCheckFailed  = "UpgradeCheckFailed"
	ReasonVersionIncompatible = "VersionIncompatible"
	ReasonDeployDeleteCreate  = "DeployDeleteCreate"
)
