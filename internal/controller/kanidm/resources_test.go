package kanidm

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/stretchr/testify/require"

	"github.com/kaniop/kaniop/api/v1alpha1"
)

func TestReplicationTypeMatrix(t *testing.T) {
	cases := []struct {
		source, target v1alpha1.ReplicationRole
		want           string
	}{
		{v1alpha1.ReplicationRoleWriteReplica, v1alpha1.ReplicationRoleWriteReplica, "mutual-pull"},
		{v1alpha1.ReplicationRoleWriteReplica, v1alpha1.ReplicationRoleWriteReplicaNoUI, "mutual-pull"},
		{v1alpha1.ReplicationRoleWriteReplica, v1alpha1.ReplicationRoleReadOnlyReplica, "allow-pull"},
		{v1alpha1.ReplicationRoleReadOnlyReplica, v1alpha1.ReplicationRoleWriteReplica, "pull"},
		{v1alpha1.ReplicationRoleReadOnlyReplica, v1alpha1.ReplicationRoleReadOnlyReplica, ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, replicationType(c.source, c.target), "%s -> %s", c.source, c.target)
	}
}

func TestReplicationEnabledSingleGroupSingleReplica(t *testing.T) {
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec: v1alpha1.KanidmSpec{
			ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{
				{Name: "default", Replicas: 1, Role: v1alpha1.ReplicationRoleWriteReplica},
			},
		},
	}
	require.False(t, replicationEnabled(kanidm))

	env := replicationEnv(kanidm, kanidm.Spec.ReplicaGroups[0])
	for _, e := range env {
		require.NotEqual(t, "POD_NAME", e.Name)
		require.NotEqual(t, "KANIDM_PRIMARY_NODE", e.Name)
	}
}

func TestReplicationEnvMultiGroupEmitsPeersAndPrimary(t *testing.T) {
	primary := true
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec: v1alpha1.KanidmSpec{
			ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{
				{Name: "write", Replicas: 1, Role: v1alpha1.ReplicationRoleWriteReplica, PrimaryNode: &primary},
				{Name: "read", Replicas: 2, Role: v1alpha1.ReplicationRoleReadOnlyReplica},
			},
		},
	}
	require.True(t, replicationEnabled(kanidm))

	env := replicationEnv(kanidm, kanidm.Spec.ReplicaGroups[0])
	byName := map[string]string{}
	for _, e := range env {
		byName[e.Name] = e.Value
	}

	require.Equal(t, "IDM_WRITE_0", byName["KANIDM_PRIMARY_NODE"])
	require.Equal(t, "mutual-pull", byName["IDM_WRITE_0_TYPE"])
	require.Equal(t, "allow-pull", byName["IDM_READ_0_TYPE"])
	require.Equal(t, "allow-pull", byName["IDM_READ_1_TYPE"])
	require.Contains(t, byName["KANIDM_REPLICATION_PEER_NAMES"], "IDM_WRITE_0")
	require.Contains(t, byName["KANIDM_REPLICATION_PEER_NAMES"], "IDM_READ_1")
}

func TestReplicationEnvExternalNode(t *testing.T) {
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec: v1alpha1.KanidmSpec{
			ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{
				{Name: "write", Replicas: 1, Role: v1alpha1.ReplicationRoleWriteReplica},
			},
			ExternalReplicationNodes: []v1alpha1.KanidmExternalReplicationNodeSpec{
				{Name: "partner", Hostname: "partner.example.com", Port: 8444, Type: "mutual-pull", AutomaticRefresh: true},
			},
		},
	}
	env := replicationEnv(kanidm, kanidm.Spec.ReplicaGroups[0])
	byName := map[string]string{}
	for _, e := range env {
		byName[e.Name] = e.Value
	}

	require.Equal(t, "partner.example.com:8444", byName["PARTNER_HOSTNAME"])
	require.Equal(t, "mutual-pull", byName["PARTNER_TYPE"])
	require.Equal(t, "true", byName["PARTNER_AUTOMATIC_REFRESH"])
	require.Equal(t, "PARTNER", byName["KANIDM_PRIMARY_NODE"])
	require.Contains(t, byName["KANIDM_REPLICATION_EXTERNAL_NAMES"], "PARTNER")
}

func TestBuildStatefulSetAddsInitContainerOnlyWhenReplicating(t *testing.T) {
	standalone := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm", Namespace: "default"},
		Spec: v1alpha1.KanidmSpec{
			ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{
				{Name: "default", Replicas: 1, Role: v1alpha1.ReplicationRoleWriteReplica},
			},
		},
	}
	sts := buildStatefulSet(standalone, standalone.Spec.ReplicaGroups[0])
	require.Empty(t, sts.Spec.Template.Spec.InitContainers)

	replicated := standalone.DeepCopy()
	replicated.Spec.ReplicaGroups[0].Replicas = 2
	sts = buildStatefulSet(replicated, replicated.Spec.ReplicaGroups[0])
	require.Len(t, sts.Spec.Template.Spec.InitContainers, 1)
	require.Equal(t, "replication-config", sts.Spec.Template.Spec.InitContainers[0].Name)
}
