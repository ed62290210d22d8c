package upsert

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

func mustScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		t.Fatal(err)
	}
	return scheme
}

func TestApplyWithRecreateNoopWhenNothingChanges(t *testing.T) {
	g := NewGomegaWithT(t)
	existing := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "idm", Namespace: "default"},
	}
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).WithObjects(existing).Build()

	obj := &appsv1.StatefulSet{ObjectMeta: metav1.ObjectMeta{Name: "idm", Namespace: "default"}}
	result, err := ApplyWithRecreate(context.Background(), c, DefaultProvider, "StatefulSet", obj, func() error { return nil })

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result).To(Equal(controllerutil.OperationResultNone))
}

func TestApplyWithRecreateCreatesMissingObject(t *testing.T) {
	g := NewGomegaWithT(t)
	c := fake.NewClientBuilder().WithScheme(mustScheme(t)).Build()

	obj := &appsv1.StatefulSet{ObjectMeta: metav1.ObjectMeta{Name: "idm", Namespace: "default"}}
	result, err := ApplyWithRecreate(context.Background(), c, DefaultProvider, "StatefulSet", obj, func() error { return nil })

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result).To(Equal(controllerutil.OperationResultCreated))

	var got appsv1.StatefulSet
	g.Expect(c.Get(context.Background(), client.ObjectKeyFromObject(obj), &got)).To(Succeed())
}
