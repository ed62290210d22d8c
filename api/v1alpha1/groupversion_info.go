// Package v1alpha1 contains API Schema definitions for the kaniop.rs v1alpha1 API group
// +kubebuilder:object:generate=true
// +groupName=kaniop.rs
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

var (
	// GroupVersion is the group version used to register these objects.
	GroupVersion       = schema.GroupVersion{Group: "kaniop.rs", Version: "v1alpha1"}
	SchemeGroupVersion = GroupVersion

	// SchemeBuilder is used to add go types to the GroupVersionKind scheme.
	SchemeBuilder = runtime.NewSchemeBuilder(addKnownTypes)

	// AddToScheme adds the types in this group-version to the given scheme.
	AddToScheme = SchemeBuilder.AddToScheme
)

func addKnownTypes(scheme *runtime.Scheme) error {
	scheme.AddKnownTypes(SchemeGroupVersion,
		&Kanidm{}, &KanidmList{},
		&KanidmPersonAccount{}, &KanidmPersonAccountList{},
		&KanidmServiceAccount{}, &KanidmServiceAccountList{},
		&KanidmGroup{}, &KanidmGroupList{},
		&KanidmOAuth2Client{}, &KanidmOAuth2ClientList{},
	)
	metav1.AddToGroupVersion(scheme, SchemeGroupVersion)
	return nil
}

// Kind takes an unqualified kind and returns back a Group qualified GroupKind.
func Kind(kind string) schema.GroupKind {
	return SchemeGroupVersion.WithKind(kind).GroupKind()
}

// Resource takes an unqualified resource and returns a Group qualified GroupResource.
func Resource(resource string) schema.GroupResource {
	return SchemeGroupVersion.WithResource(resource).GroupResource()
}
