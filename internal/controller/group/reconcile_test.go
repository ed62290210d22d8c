package group

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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

	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithStatusSubresource(&v1alpha1.KanidmGroup{}).WithRuntimeObjects(objs...).Build()
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

func TestReconcileCreatesMissingGroupAndSetsMembers(t *testing.T) {
	var memberPath string
	var memberBody []string
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/v1/group/admins/_attr/member":
			memberPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&memberBody)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	g := &v1alpha1.KanidmGroup{
		ObjectMeta: metav1.ObjectMeta{Name: "admins", Namespace: "default"},
		Spec: v1alpha1.KanidmGroupSpec{
			KanidmRef: v1alpha1.KanidmRef{Name: "main"},
			Members:   []string{"alice", "bob"},
		},
	}
	r := newReconciler(t, idm, kanidm, g)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "admins"}})
	require.NoError(t, err)
	assert.Equal(t, "/v1/group/admins/_attr/member", memberPath)
	assert.ElementsMatch(t, []string{"alice", "bob"}, memberBody)

	got := &v1alpha1.KanidmGroup{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "admins"}, got))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.GroupExists))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.GroupMembersUpdated))
	assert.True(t, got.Status.Ready)
}

func TestReconcilePurgesMailWhenEmpty(t *testing.T) {
	var purgedPath, purgedMethod string
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"attrs": map[string][]string{
				"member": {"alice"},
				"mail":   {"admins@example.com"},
			}})
		case r.URL.Path == "/v1/group/admins/_attr/mail":
			purgedPath, purgedMethod = r.URL.Path, r.Method
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	g := &v1alpha1.KanidmGroup{
		ObjectMeta: metav1.ObjectMeta{Name: "admins", Namespace: "default"},
		Spec: v1alpha1.KanidmGroupSpec{
			KanidmRef: v1alpha1.KanidmRef{Name: "main"},
			Members:   []string{"alice"},
		},
	}
	r := newReconciler(t, idm, kanidm, g)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "admins"}})
	require.NoError(t, err)
	assert.Equal(t, "/v1/group/admins/_attr/mail", purgedPath)
	assert.Equal(t, http.MethodDelete, purgedMethod)

	got := &v1alpha1.KanidmGroup{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "admins"}, got))
	assert.True(t, meta.IsStatusConditionTrue(got.Status.Conditions, v1alpha1.GroupMailUpdated))
}

func TestReconcileEntryManagedByNotPropagated(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"attrs": map[string][]string{
				"member":           {"alice"},
				"entry_managed_by": {"other-group"},
			}})
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer idm.Close()

	kanidm := readyKanidm("main", "default")
	g := &v1alpha1.KanidmGroup{
		ObjectMeta: metav1.ObjectMeta{Name: "admins", Namespace: "default"},
		Spec: v1alpha1.KanidmGroupSpec{
			KanidmRef:      v1alpha1.KanidmRef{Name: "main"},
			Members:        []string{"alice"},
			EntryManagedBy: "desired-group",
		},
	}
	r := newReconciler(t, idm, kanidm, g)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "admins"}})
	require.NoError(t, err)

	got := &v1alpha1.KanidmGroup{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "admins"}, got))
	cond := meta.FindStatusCondition(got.Status.Conditions, v1alpha1.GroupManagedUpdated)
	require.NotNil(t, cond)
	assert.Equal(t, metav1.ConditionFalse, cond.Status)
	assert.Equal(t, "NotPropagated", cond.Reason)
	// GroupManagedUpdated being False should not block readiness.
	assert.True(t, got.Status.Ready)
}

func TestReconcileWaitsForUnreadyKanidm(t *testing.T) {
	idm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer idm.Close()

	kanidm := &v1alpha1.Kanidm{ObjectMeta: metav1.ObjectMeta{Name: "main", Namespace: "default"}}
	g := &v1alpha1.KanidmGroup{
		ObjectMeta: metav1.ObjectMeta{Name: "admins", Namespace: "default"},
		Spec:       v1alpha1.KanidmGroupSpec{KanidmRef: v1alpha1.KanidmRef{Name: "main"}},
	}
	r := newReconciler(t, idm, kanidm, g)

	result, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "admins"}})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, result.RequeueAfter)

	got := &v1alpha1.KanidmGroup{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "admins"}, got))
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
	g := &v1alpha1.KanidmGroup{
		ObjectMeta: metav1.ObjectMeta{
			Name:              "admins",
			Namespace:         "default",
			DeletionTimestamp: &now,
			Finalizers:        []string{finalizerName},
		},
		Spec: v1alpha1.KanidmGroupSpec{KanidmRef: v1alpha1.KanidmRef{Name: "main"}},
	}
	r := newReconciler(t, idm, kanidm, g)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "default", Name: "admins"}})
	require.NoError(t, err)
	assert.Equal(t, "/v1/group/admins", deletedPath)

	err = r.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "admins"}, &v1alpha1.KanidmGroup{})
	assert.Error(t, err)
}
