package serviceaccount

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/clientpool"
	"github.com/kaniop/kaniop/internal/events"
	"github.com/kaniop/kaniop/internal/secrets"

	"k8s.io/client-go/tools/record"
)

func mustScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, v1alpha1.AddToScheme(scheme))
	return scheme
}

type fakeCredentialSource struct {
	baseURL string
}

func (f fakeCredentialSource) AdminCredentials(ctx context.Context, key clientpool.Key) (string, string, string, error) {
	return f.baseURL, "idm_admin", "hunter2", nil
}

func newReconciler(t *testing.T, idmServer *httptest.Server, objs ...runtime.Object) *Reconciler {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/auth" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"state": map[string]any{"success": "tok-123"},
			})
			return
		}
		idmServer.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithStatusSubresource(&v1alpha1.KanidmServiceAccount{}).WithRuntimeObjects(objs...).Build()
	return &Reconciler{
		Client:   c,
		Pool:     clientpool.New(fakeCredentialSource{baseURL: server.URL}),
		Recorder: events.NewRecorder(record.NewFakeRecorder(20)),
	}
}

func readyKanidm(name, namespace string) *v1alpha1.Kanidm {
	k := &v1alpha1.Kanidm{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}}
	k.Status.Ready = true
	return k
}

func TestReconcileCreatesMissingServiceAccount(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	sa := &v1alpha1.KanidmServiceAccount{
		ObjectMeta: metav1.ObjectMeta{Name: "bot", Namespace: "default"},
		Spec: v1alpha1.KanidmServiceAccountSpec{
			KanidmRef:   v1alpha1.KanidmRef{Name: "main"},
			DisplayName: "Bot Account",
		},
	}
	r := newReconciler(t, idm, kanidm, sa)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "bot"}})
	require.NoError(t, err)

	got := &v1alpha1.KanidmServiceAccount{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "bot"}, got))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.ServiceAccountExists))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.ServiceAccountUpdated))
	assert.True(t, got.Status.Ready)
}

func TestReconcileIssuesAPIToken(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/service_account/bot":
			_ = json.NewEncoder(w).Encode(map[string]any{"attrs": map[string][]string{"displayname": {"Bot Account"}}})
		case r.URL.Path == "/v1/service_account/bot/_api_token":
			_ = json.NewEncoder(w).Encode(map[string]string{"token_id": "tok-id-1", "token": "raw-token-value"})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	sa := &v1alpha1.KanidmServiceAccount{
		ObjectMeta: metav1.ObjectMeta{Name: "bot", Namespace: "default"},
		Spec: v1alpha1.KanidmServiceAccountSpec{
			KanidmRef:   v1alpha1.KanidmRef{Name: "main"},
			DisplayName: "Bot Account",
			APITokens:   []v1alpha1.APIToken{{Label: "ci"}},
		},
	}
	r := newReconciler(t, idm, kanidm, sa)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "bot"}})
	require.NoError(t, err)

	got := &v1alpha1.KanidmServiceAccount{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "bot"}, got))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.ServiceAccountAPITokensUpdated))
	require.Len(t, got.Status.APITokens, 1)
	assert.Equal(t, "tok-id-1", got.Status.APITokens[0].TokenID)

	secret := &corev1.Secret{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: secrets.APITokenName("bot", "ci")}, secret))
	assert.Equal(t, "raw-token-value", secret.StringData[secrets.TokenKey])
	assert.Equal(t, "tok-id-1", secret.Annotations[tokenIDAnnotation])
}

func TestReconcileRevokesStaleAPIToken(t *testing.T) {
	var revokedPath string
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/service_account/bot":
			_ = json.NewEncoder(w).Encode(map[string]any{"attrs": map[string][]string{"displayname": {"Bot Account"}}})
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/service_account/bot/_api_token/old-id":
			revokedPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	sa := &v1alpha1.KanidmServiceAccount{
		ObjectMeta: metav1.ObjectMeta{Name: "bot", Namespace: "default", UID: "sa-uid-1"},
		Spec: v1alpha1.KanidmServiceAccountSpec{
			KanidmRef:   v1alpha1.KanidmRef{Name: "main"},
			DisplayName: "Bot Account",
		},
	}
	staleSecret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:        secrets.APITokenName("bot", "old"),
			Namespace:   "default",
			Annotations: map[string]string{tokenIDAnnotation: "old-id"},
			OwnerReferences: []metav1.OwnerReference{
				{APIVersion: "kaniop.rs/v1alpha1", Kind: "KanidmServiceAccount", Name: "bot", UID: "sa-uid-1", Controller: boolPtr(true)},
			},
		},
	}
	r := newReconciler(t, idm, kanidm, sa, staleSecret)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "bot"}})
	require.NoError(t, err)
	assert.Equal(t, "/v1/service_account/bot/_api_token/old-id", revokedPath)

	err = r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: secrets.APITokenName("bot", "old")}, &corev1.Secret{})
	assert.Error(t, err)
}

func boolPtr(b bool) *bool { return &b }

func TestReconcileWaitsForUnreadyKanidm(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer idm.Close()

	kanidm := &v1alpha1.Kanidm{ObjectMeta: metav1.ObjectMeta{Name: "main", Namespace: "default"}}
	sa := &v1alpha1.KanidmServiceAccount{
		ObjectMeta: metav1.ObjectMeta{Name: "bot", Namespace: "default"},
		Spec:       v1alpha1.KanidmServiceAccountSpec{KanidmRef: v1alpha1.KanidmRef{Name: "main"}},
	}
	r := newReconciler(t, idm, kanidm, sa)

	result, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "bot"}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, result.RequeueAfter)

	got := &v1alpha1.KanidmServiceAccount{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "bot"}, got))
	assert.Empty(t, got.Status.Conditions)
}

func TestReconcileCleansUpOnDeletion(t *testing.T) {
	var deletedPath string
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletedPath = r.URL.Path
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer idm.Close()

	now := metav1.Now()
	kanidm := readyKanidm("main", "default")
	sa := &v1alpha1.KanidmServiceAccount{
		ObjectMeta: metav1.ObjectMeta{
			Name:              "bot",
			Namespace:         "default",
			DeletionTimestamp: &now,
			Finalizers:        []string{finalizerName},
		},
		Spec: v1alpha1.KanidmServiceAccountSpec{KanidmRef: v1alpha1.KanidmRef{Name: "main"}},
	}
	r := newReconciler(t, idm, kanidm, sa)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "bot"}})
	require.NoError(t, err)
	assert.Equal(t, "/v1/service_account/bot", deletedPath)

	err = r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "bot"}, &v1alpha1.KanidmServiceAccount{})
	assert.Error(t, err)
}
