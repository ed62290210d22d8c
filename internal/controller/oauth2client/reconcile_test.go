package oauth2client

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

	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithStatusSubresource(&v1alpha1.KanidmOAuth2Client{}).WithRuntimeObjects(objs...).Build()
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

func TestReconcileCreatesMissingPublicClient(t *testing.T) {
	var createdBody map[string]any
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/oauth2":
			_ = json.NewDecoder(r.Body).Decode(&createdBody)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	oc := &v1alpha1.KanidmOAuth2Client{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Namespace: "default"},
		Spec: v1alpha1.KanidmOAuth2ClientSpec{
			KanidmRef:   v1alpha1.KanidmRef{Name: "main"},
			DisplayName: "My App",
			Origin:      "https://app.example.com",
			Public:      true,
		},
	}
	r := newReconciler(t, idm, kanidm, oc)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "app"}})
	require.NoError(t, err)
	assert.Equal(t, "app", createdBody["name"])
	assert.Equal(t, true, createdBody["public"])

	got := &v1alpha1.KanidmOAuth2Client{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "app"}, got))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.OAuth2ClientExists))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.OAuth2ClientSecretInitialized))
	assert.True(t, got.Status.Ready)
}

func TestReconcileConfidentialClientSyncsSecret(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/oauth2/app":
			_ = json.NewEncoder(w).Encode(map[string]any{"attrs": map[string][]string{
				"displayname":      {"My App"},
				"oauth2_rs_origin": {"https://app.example.com"},
			}})
		case r.URL.Path == "/v1/oauth2/app/_basic_secret":
			_ = json.NewEncoder(w).Encode(map[string]string{"secret": "topsecret"})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	oc := &v1alpha1.KanidmOAuth2Client{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Namespace: "default"},
		Spec: v1alpha1.KanidmOAuth2ClientSpec{
			KanidmRef:   v1alpha1.KanidmRef{Name: "main"},
			DisplayName: "My App",
			Origin:      "https://app.example.com",
			Public:      false,
		},
	}
	r := newReconciler(t, idm, kanidm, oc)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "app"}})
	require.NoError(t, err)

	got := &v1alpha1.KanidmOAuth2Client{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "app"}, got))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.OAuth2ClientSecretInitialized))

	secret := &corev1.Secret{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: secrets.CredentialName("app", "oauth2")}, secret))
	assert.Equal(t, "topsecret", secret.StringData[secrets.TokenKey])
}

func TestReconcileScopeMapRemovesStaleGroup(t *testing.T) {
	var paths []string
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/oauth2/app":
			_ = json.NewEncoder(w).Encode(map[string]any{"attrs": map[string][]string{
				"displayname":      {"My App"},
				"oauth2_rs_origin": {"https://app.example.com"},
			}})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	oc := &v1alpha1.KanidmOAuth2Client{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Namespace: "default"},
		Spec: v1alpha1.KanidmOAuth2ClientSpec{
			KanidmRef:   v1alpha1.KanidmRef{Name: "main"},
			DisplayName: "My App",
			Origin:      "https://app.example.com",
			Public:      true,
			ScopeMaps:   []v1alpha1.OAuth2ScopeMapEntry{{Group: "admins", Scopes: []string{"openid"}}},
			// Public avoids the confidential-client secret-sync path so
			// this test stays focused on scope-map convergence.
		},
		Status: v1alpha1.KanidmOAuth2ClientStatus{
			AppliedScopeMapGroups: []string{"admins", "old-group"},
		},
	}
	r := newReconciler(t, idm, kanidm, oc)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "app"}})
	require.NoError(t, err)

	assert.Contains(t, paths, "PUT /v1/oauth2/app/_scopemap/admins")
	assert.Contains(t, paths, "DELETE /v1/oauth2/app/_scopemap/old-group")

	got := &v1alpha1.KanidmOAuth2Client{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "app"}, got))
	assert.Equal(t, []string{"admins"}, got.Status.AppliedScopeMapGroups)
}

func TestReconcileWaitsForUnreadyKanidm(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer idm.Close()

	kanidm := &v1alpha1.Kanidm{ObjectMeta: metav1.ObjectMeta{Name: "main", Namespace: "default"}}
	oc := &v1alpha1.KanidmOAuth2Client{
		ObjectMeta: metav1.ObjectMeta{Name: "app", Namespace: "default"},
		Spec:       v1alpha1.KanidmOAuth2ClientSpec{KanidmRef: v1alpha1.KanidmRef{Name: "main"}, Origin: "https://app.example.com"},
	}
	r := newReconciler(t, idm, kanidm, oc)

	result, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "app"}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, result.RequeueAfter)

	got := &v1alpha1.KanidmOAuth2Client{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "app"}, got))
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
	oc := &v1alpha1.KanidmOAuth2Client{
		ObjectMeta: metav1.ObjectMeta{
			Name:              "app",
			Namespace:         "default",
			DeletionTimestamp: &now,
			Finalizers:        []string{finalizerName},
		},
		Spec: v1alpha1.KanidmOAuth2ClientSpec{KanidmRef: v1alpha1.KanidmRef{Name: "main"}, Origin: "https://app.example.com"},
	}
	r := newReconciler(t, idm, kanidm, oc)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "app"}})
	require.NoError(t, err)
	assert.Equal(t, "/v1/oauth2/app", deletedPath)

	err = r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "app"}, &v1alpha1.KanidmOAuth2Client{})
	assert.Error(t, err)
}

func TestReconcileCleanupNoOpWhenKanidmAlreadyDeleted(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer idm.Close()

	now := metav1.Now()
	oc := &v1alpha1.KanidmOAuth2Client{
		ObjectMeta: metav1.ObjectMeta{
			Name:              "app",
			Namespace:         "default",
			DeletionTimestamp: &now,
			Finalizers:        []string{finalizerName},
		},
		Spec: v1alpha1.KanidmOAuth2ClientSpec{KanidmRef: v1alpha1.KanidmRef{Name: "main"}, Origin: "https://app.example.com"},
	}
	r := newReconciler(t, idm, oc)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "app"}})
	require.NoError(t, err)

	err = r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "app"}, &v1alpha1.KanidmOAuth2Client{})
	assert.Error(t, err)
}
