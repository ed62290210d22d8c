package nsselector

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	return scheme
}

func TestMatchesNilSelectorOnlyOwnNamespace(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).Build()

	ok, err := Matches(context.Background(), c, nil, "idm-ns", "idm-ns")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(context.Background(), c, nil, "idm-ns", "other-ns")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchesSelectorChecksNamespaceLabels(t *testing.T) {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:   "team-a",
			Labels: map[string]string{"team": "a"},
		},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(ns).Build()

	selector := &metav1.LabelSelector{MatchLabels: map[string]string{"team": "a"}}
	ok, err := Matches(context.Background(), c, selector, "idm-ns", "team-a")
	require.NoError(t, err)
	assert.True(t, ok)

	selector = &metav1.LabelSelector{MatchLabels: map[string]string{"team": "b"}}
	ok, err = Matches(context.Background(), c, selector, "idm-ns", "team-a")
	require.NoError(t, err)
	assert.False(t, ok)
}
