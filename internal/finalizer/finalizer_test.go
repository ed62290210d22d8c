package finalizer

import (
	"context"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const name = "kaniop.rs/finalizer"

func mustScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	return scheme
}

func TestEnsureAddsFinalizerWhenNotDeleting(t *testing.T) {
	obj := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "x", Namespace: "default"}}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(obj).Build()

	done, err := EnsureWithCleanup(context.Background(), c, obj, name, func(ctx context.Context) error {
		t.Fatal("cleanup should not run")
		return nil
	})

	require.NoError(t, err)
	assert.False(t, done)
	assert.True(t, controllerutil.ContainsFinalizer(obj, name))
}

func TestEnsureRunsCleanupAndRemovesFinalizerOnDelete(t *testing.T) {
	now := metav1.NewTime(time.Now())
	obj := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:              "x",
			Namespace:         "default",
			Finalizers:        []string{name},
			DeletionTimestamp: &now,
		},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(obj).Build()

	cleaned := false
	done, err := EnsureWithCleanup(context.Background(), c, obj, name, func(ctx context.Context) error {
		cleaned = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, cleaned)
	assert.False(t, controllerutil.ContainsFinalizer(obj, name))
}

func TestEnsureNoopWhenAlreadyFinalizedAndDeleting(t *testing.T) {
	now := metav1.NewTime(time.Now())
	obj := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:              "x",
			Namespace:         "default",
			Finalizers:        []string{"some.other/finalizer"},
			DeletionTimestamp: &now,
		},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(obj).Build()

	done, err := EnsureWithCleanup(context.Background(), c, obj, name, func(ctx context.Context) error {
		t.Fatal("cleanup should not run")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, done)
}
