package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/kanidmclient"
	"github.com/kaniop/kaniop/internal/secrets"
)

func mustScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, v1alpha1.AddToScheme(scheme))
	return scheme
}

func newFakeKanidmClient(t *testing.T) *kanidmclient.Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return kanidmclient.New(kanidmclient.Config{BaseURL: server.URL})
}

func TestReconcileCreatesSecretAndSetsPassword(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	kc := kanidmclient.New(kanidmclient.Config{BaseURL: server.URL})

	owner := &v1alpha1.KanidmPersonAccount{ObjectMeta: metav1.ObjectMeta{Name: "alice", Namespace: "default"}}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(owner).Build()

	changed, err := Reconcile(context.Background(), c, kc, owner, "person", "alice", &v1alpha1.CredentialGenerationPolicy{Enabled: true})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "/v1/person/alice/_credential/primary/set_password", gotPath)
	assert.NotEmpty(t, gotBody["password"])

	secret := &corev1.Secret{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: secrets.CredentialName("alice", "person")}, secret))
}

func TestReconcileDisabledDeletesExistingSecret(t *testing.T) {
	owner := &v1alpha1.KanidmPersonAccount{ObjectMeta: metav1.ObjectMeta{Name: "alice", Namespace: "default"}}
	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: secrets.CredentialName("alice", "person"), Namespace: "default"}}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(owner, secret).Build()

	changed, err := Reconcile(context.Background(), c, newFakeKanidmClient(t), owner, "person", "alice", nil)
	require.NoError(t, err)
	assert.False(t, changed)

	err = c.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: secrets.CredentialName("alice", "person")}, &corev1.Secret{})
	assert.Error(t, err)
}

func TestReconcileSkipsWhenNoRotationPolicyAndAlreadyGenerated(t *testing.T) {
	owner := &v1alpha1.KanidmPersonAccount{ObjectMeta: metav1.ObjectMeta{Name: "alice", Namespace: "default"}}
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      secrets.CredentialName("alice", "person"),
			Namespace: "default",
			Annotations: map[string]string{
				secrets.LastRotationTimeAnnotation: "2020-01-01T00:00:00Z",
			},
		},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(owner, secret).Build()

	changed, err := Reconcile(context.Background(), c, newFakeKanidmClient(t), owner, "person", "alice", &v1alpha1.CredentialGenerationPolicy{Enabled: true})
	require.NoError(t, err)
	assert.False(t, changed)
}
