// Package store centralizes the Kubernetes API access every reconciler in
// this operator needs: typed get/list helpers for the five CRD kinds, and
// a thin wrapper that turns apierrors into internal/kerrors.KubeError so
// callers can branch on error category without importing apierrors
// themselves.
package store

import (
	"context"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/kerrors"
)

// Store wraps a controller-runtime client with typed accessors for the
// operator's own CRD kinds. It embeds client.Client so callers that need
// the generic surface (e.g. to read a StatefulSet or Secret) keep it.
type Store struct {
	client.Client
}

// New builds a Store around c.
func New(c client.Client) *Store {
	return &Store{Client: c}
}

// IgnoreNotFound returns nil if err is a Kubernetes NotFound error,
// otherwise it wraps err as a KubeError.
func IgnoreNotFound(op string, err error) error {
	if err == nil || apierrors.IsNotFound(err) {
		return nil
	}
	return kerrors.NewKubeError(op, err)
}

func (s *Store) GetKanidm(ctx context.Context, key types.NamespacedName) (*v1alpha1.Kanidm, error) {
	obj := &v1alpha1.Kanidm{}
	if err := s.Get(ctx, key, obj); err != nil {
		return nil, kerrors.NewKubeError("get Kanidm", err)
	}
	return obj, nil
}

func (s *Store) GetPersonAccount(ctx context.Context, key types.NamespacedName) (*v1alpha1.KanidmPersonAccount, error) {
	obj := &v1alpha1.KanidmPersonAccount{}
	if err := s.Get(ctx, key, obj); err != nil {
		return nil, kerrors.NewKubeError("get KanidmPersonAccount", err)
	}
	return obj, nil
}

func (s *Store) GetServiceAccount(ctx context.Context, key types.NamespacedName) (*v1alpha1.KanidmServiceAccount, error) {
	obj := &v1alpha1.KanidmServiceAccount{}
	if err := s.Get(ctx, key, obj); err != nil {
		return nil, kerrors.NewKubeError("get KanidmServiceAccount", err)
	}
	return obj, nil
}

func (s *Store) GetGroup(ctx context.Context, key types.NamespacedName) (*v1alpha1.KanidmGroup, error) {
	obj := &v1alpha1.KanidmGroup{}
	if err := s.Get(ctx, key, obj); err != nil {
		return nil, kerrors.NewKubeError("get KanidmGroup", err)
	}
	return obj, nil
}

func (s *Store) GetOAuth2Client(ctx context.Context, key types.NamespacedName) (*v1alpha1.KanidmOAuth2Client, error) {
	obj := &v1alpha1.KanidmOAuth2Client{}
	if err := s.Get(ctx, key, obj); err != nil {
		return nil, kerrors.NewKubeError("get KanidmOAuth2Client", err)
	}
	return obj, nil
}

// ListPersonAccounts lists KanidmPersonAccounts matching opts, wrapping
// transport/API failures as KubeError.
func (s *Store) ListPersonAccounts(ctx context.Context, opts ...client.ListOption) (*v1alpha1.KanidmPersonAccountList, error) {
	list := &v1alpha1.KanidmPersonAccountList{}
	if err := s.List(ctx, list, opts...); err != nil {
		return nil, kerrors.NewKubeError("list KanidmPersonAccounts", err)
	}
	return list, nil
}

func (s *Store) ListServiceAccounts(ctx context.Context, opts ...client.ListOption) (*v1alpha1.KanidmServiceAccountList, error) {
	list := &v1alpha1.KanidmServiceAccountList{}
	if err := s.List(ctx, list, opts...); err != nil {
		return nil, kerrors.NewKubeError("list KanidmServiceAccounts", err)
	}
	return list, nil
}

func (s *Store) ListGroups(ctx context.Context, opts ...client.ListOption) (*v1alpha1.KanidmGroupList, error) {
	list := &v1alpha1.KanidmGroupList{}
	if err := s.List(ctx, list, opts...); err != nil {
		return nil, kerrors.NewKubeError("list KanidmGroups", err)
	}
	return list, nil
}

func (s *Store) ListOAuth2Clients(ctx context.Context, opts ...client.ListOption) (*v1alpha1.KanidmOAuth2ClientList, error) {
	list := &v1alpha1.KanidmOAuth2ClientList{}
	if err := s.List(ctx, list, opts...); err != nil {
		return nil, kerrors.NewKubeError("list KanidmOAuth2Clients", err)
	}
	return list, nil
}

// UpdateStatus patches obj's status subresource, wrapping conflicts and
// other API failures as KubeError.
func (s *Store) UpdateStatus(ctx context.Context, obj client.Object) error {
	if err := s.Status().Update(ctx, obj); err != nil {
		return kerrors.NewKubeError("update status", err)
	}
	return nil
}
