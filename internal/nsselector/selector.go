// Package nsselector gates whether an identity resource in a given
// namespace is in scope for a Kanidm instance's *NamespaceSelector
// fields, reading Namespace objects through the manager's cache rather
// than issuing a direct API call per check.
package nsselector

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Matches reports whether the namespace named namespace is in scope for
// selector, where a nil selector means "only the Kanidm instance's own
// namespace" (ownNamespace).
func Matches(ctx context.Context, reader client.Reader, selector *metav1.LabelSelector, ownNamespace, namespace string) (bool, error) {
	if selector == nil {
		return namespace == ownNamespace, nil
	}

	sel, err := metav1.LabelSelectorAsSelector(selector)
	if err != nil {
		return false, fmt.Errorf("invalid namespace selector: %w", err)
	}

	ns := &corev1.Namespace{}
	if err := reader.Get(ctx, types.NamespacedName{Name: namespace}, ns); err != nil {
		return false, fmt.Errorf("reading namespace %s: %w", namespace, err)
	}

	return sel.Matches(labels.Set(ns.GetLabels())), nil
}
