package admission

import (
	"context"
	"strings"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaniop/kaniop/api/v1alpha1"
)

func writeGroup(name string, replicas int32) v1alpha1.KanidmReplicaGroupSpec {
	return v1alpha1.KanidmReplicaGroupSpec{Name: name, Replicas: replicas, Role: v1alpha1.ReplicationRoleWriteReplica}
}

func mustScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, v1alpha1.AddToScheme(scheme))
	return scheme
}

func TestValidateKanidmUpdateRejectsDomainChange(t *testing.T) {
	oldObj := &v1alpha1.Kanidm{Spec: v1alpha1.KanidmSpec{Domain: "idm.example.com"}}
	newObj := &v1alpha1.Kanidm{Spec: v1alpha1.KanidmSpec{Domain: "idm2.example.com"}}

	assert.Error(t, ValidateKanidmUpdate(oldObj, newObj))
}

func TestValidateKanidmUpdateAllowsOtherFieldChanges(t *testing.T) {
	oldObj := &v1alpha1.Kanidm{Spec: v1alpha1.KanidmSpec{Domain: "idm.example.com", Image: "kanidm:1.0"}}
	newObj := &v1alpha1.Kanidm{Spec: v1alpha1.KanidmSpec{Domain: "idm.example.com", Image: "kanidm:1.1"}}

	assert.NoError(t, ValidateKanidmUpdate(oldObj, newObj))
}

func TestValidateOAuth2ClientUpdateRejectsPublicChange(t *testing.T) {
	oldObj := &v1alpha1.KanidmOAuth2Client{Spec: v1alpha1.KanidmOAuth2ClientSpec{Public: false}}
	newObj := &v1alpha1.KanidmOAuth2Client{Spec: v1alpha1.KanidmOAuth2ClientSpec{Public: true}}

	err := ValidateOAuth2ClientUpdate(oldObj, newObj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Public cannot be changed.")
}

func TestValidateOAuth2ClientSpecRejectsPkceDisableOnPublic(t *testing.T) {
	oc := &v1alpha1.KanidmOAuth2Client{Spec: v1alpha1.KanidmOAuth2ClientSpec{Public: true, AllowInsecureClientDisablePkce: true}}
	assert.Error(t, ValidateOAuth2ClientSpec(oc))
}

func TestValidateOAuth2ClientSpecRejectsLocalhostRedirectWithoutPublic(t *testing.T) {
	oc := &v1alpha1.KanidmOAuth2Client{Spec: v1alpha1.KanidmOAuth2ClientSpec{Public: false, AllowLocalhostRedirect: true}}
	assert.Error(t, ValidateOAuth2ClientSpec(oc))
}

func TestValidateOAuth2ClientSpecAllowsLocalhostRedirectWithPublic(t *testing.T) {
	oc := &v1alpha1.KanidmOAuth2Client{Spec: v1alpha1.KanidmOAuth2ClientSpec{Public: true, AllowLocalhostRedirect: true}}
	assert.NoError(t, ValidateOAuth2ClientSpec(oc))
}

func TestValidateKanidmSpecRejectsDuplicateGroupNames(t *testing.T) {
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec:       v1alpha1.KanidmSpec{ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{writeGroup("a", 1), writeGroup("a", 1)}},
	}
	assert.Error(t, ValidateKanidmSpec(kanidm))
}

func TestValidateKanidmSpecRejectsOversizedChildName(t *testing.T) {
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: strings.Repeat("a", 60)},
		Spec:       v1alpha1.KanidmSpec{ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{writeGroup("group", 1)}},
	}
	assert.Error(t, ValidateKanidmSpec(kanidm))
}

func TestValidateKanidmSpecRejectsPrimaryNodeOnReadOnlyRole(t *testing.T) {
	primary := true
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec: v1alpha1.KanidmSpec{ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{
			{Name: "ro", Replicas: 1, Role: v1alpha1.ReplicationRoleReadOnlyReplica, PrimaryNode: &primary},
		}},
	}
	assert.Error(t, ValidateKanidmSpec(kanidm))
}

func TestValidateKanidmSpecRejectsMultiplePrimaries(t *testing.T) {
	primary := true
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec: v1alpha1.KanidmSpec{ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{
			{Name: "a", Replicas: 1, Role: v1alpha1.ReplicationRoleWriteReplica, PrimaryNode: &primary},
			{Name: "b", Replicas: 1, Role: v1alpha1.ReplicationRoleWriteReplica, PrimaryNode: &primary},
		}},
	}
	assert.Error(t, ValidateKanidmSpec(kanidm))
}

func TestValidateKanidmSpecRejectsEmptyDirWithReplication(t *testing.T) {
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec: v1alpha1.KanidmSpec{
			Storage:       v1alpha1.KanidmStorageSpec{EmptyDir: &corev1.EmptyDirVolumeSource{}},
			ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{writeGroup("a", 2)},
		},
	}
	assert.Error(t, ValidateKanidmSpec(kanidm))
}

func TestValidateKanidmSpecAllowsSingleReplicaEmptyDir(t *testing.T) {
	kanidm := &v1alpha1.Kanidm{
		ObjectMeta: metav1.ObjectMeta{Name: "idm"},
		Spec: v1alpha1.KanidmSpec{
			Storage:       v1alpha1.KanidmStorageSpec{EmptyDir: &corev1.EmptyDirVolumeSource{}},
			ReplicaGroups: []v1alpha1.KanidmReplicaGroupSpec{writeGroup("a", 1)},
		},
	}
	assert.NoError(t, ValidateKanidmSpec(kanidm))
}

func TestCheckExclusiveOwnershipRejectsDuplicateClaim(t *testing.T) {
	ref := v1alpha1.KanidmRef{Name: "idm", Namespace: "idm-ns"}
	existing := &v1alpha1.KanidmPersonAccount{
		ObjectMeta: metav1.ObjectMeta{Name: "alice", Namespace: "team-a"},
		Spec:       v1alpha1.KanidmPersonAccountSpec{KanidmRef: ref},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(existing).Build()

	err := CheckExclusiveOwnership(context.Background(), c, KindPerson, ref, "alice", "team-b", "alice-2")
	assert.Error(t, err)
}

func TestCheckExclusiveOwnershipAllowsSelf(t *testing.T) {
	ref := v1alpha1.KanidmRef{Name: "idm", Namespace: "idm-ns"}
	existing := &v1alpha1.KanidmPersonAccount{
		ObjectMeta: metav1.ObjectMeta{Name: "alice", Namespace: "team-a"},
		Spec:       v1alpha1.KanidmPersonAccountSpec{KanidmRef: ref},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(existing).Build()

	err := CheckExclusiveOwnership(context.Background(), c, KindPerson, ref, "alice", "team-a", "alice")
	assert.NoError(t, err)
}

func TestCheckExclusiveOwnershipAllowsDifferentKanidm(t *testing.T) {
	existing := &v1alpha1.KanidmPersonAccount{
		ObjectMeta: metav1.ObjectMeta{Name: "alice", Namespace: "team-a"},
		Spec:       v1alpha1.KanidmPersonAccountSpec{KanidmRef: v1alpha1.KanidmRef{Name: "idm-1", Namespace: "idm-ns"}},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(existing).Build()

	otherRef := v1alpha1.KanidmRef{Name: "idm-2", Namespace: "idm-ns"}
	err := CheckExclusiveOwnership(context.Background(), c, KindPerson, otherRef, "alice", "team-b", "alice-2")
	assert.NoError(t, err)
}
