// Package admission implements the operator's validating-webhook logic:
// immutable-field checks on update, and exclusive-ownership checks that
// reject a second identity resource claiming the same IDM name under one
// Kanidm instance.
package admission

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/kaniop/kaniop/api/v1alpha1"
)

// ValidateKanidmUpdate rejects changes to Kanidm's immutable fields and
// re-checks the spec-wide invariants enforced at create (§3.3
// invariants 3-5), since an update can reintroduce the same violations.
func ValidateKanidmUpdate(oldObj, newObj *v1alpha1.Kanidm) error {
	if oldObj.Spec.Domain != newObj.Spec.Domain {
		return fmt.Errorf("spec.domain is immutable: was %q, got %q", oldObj.Spec.Domain, newObj.Spec.Domain)
	}
	return ValidateKanidmSpec(newObj)
}

// maxChildResourceName is the Kubernetes object-name length limit that
// "<kanidm.name>-<replicaGroup.name>" must respect: it names a
// StatefulSet and its headless Service.
const maxChildResourceName = 63

// ValidateKanidmSpec enforces the replica-group invariants that hold
// regardless of whether the Kanidm is being created or updated:
// replica-group name uniqueness, at most one primary write-position,
// primaryNode legal only for write roles, replication requiring durable
// storage, and the derived child-object name length limit.
func ValidateKanidmSpec(kanidm *v1alpha1.Kanidm) error {
	seen := make(map[string]bool, len(kanidm.Spec.ReplicaGroups))
	primaryCount := 0
	hasExternalNodes := len(kanidm.Spec.ExternalReplicationNodes) > 0

	for _, group := range kanidm.Spec.ReplicaGroups {
		if seen[group.Name] {
			return fmt.Errorf("replicaGroups[].name %q is not unique", group.Name)
		}
		seen[group.Name] = true

		if len(kanidm.Name)+1+len(group.Name) > maxChildResourceName {
			return fmt.Errorf("%q + \"-\" + replicaGroup %q exceeds %d characters", kanidm.Name, group.Name, maxChildResourceName)
		}

		if group.PrimaryNode != nil && *group.PrimaryNode {
			if group.Role == v1alpha1.ReplicationRoleReadOnlyReplica {
				return fmt.Errorf("replicaGroups[%q].primaryNode is only legal for write roles, got role %q", group.Name, group.Role)
			}
			primaryCount++
		}

		if (group.Replicas > 1 || hasExternalNodes) && forbidsReplication(effectiveStorage(kanidm, group)) {
			return fmt.Errorf("replicaGroups[%q]: replication (replicas > 1, or any externalReplicationNode) forbids emptyDir/ephemeral storage", group.Name)
		}
	}

	for _, node := range kanidm.Spec.ExternalReplicationNodes {
		if node.AutomaticRefresh {
			primaryCount++
		}
	}
	if primaryCount > 1 {
		return fmt.Errorf("at most one replicaGroup or externalReplicationNode may be the primary write-position, found %d", primaryCount)
	}

	return nil
}

func effectiveStorage(kanidm *v1alpha1.Kanidm, group v1alpha1.KanidmReplicaGroupSpec) v1alpha1.KanidmStorageSpec {
	if group.StorageTemplate != nil {
		return *group.StorageTemplate
	}
	return kanidm.Spec.Storage
}

func forbidsReplication(storage v1alpha1.KanidmStorageSpec) bool {
	return storage.EmptyDir != nil || storage.Ephemeral != nil
}

// ValidateOAuth2ClientSpec enforces invariant 8's mutual-exclusion rules,
// which hold on both create and update.
func ValidateOAuth2ClientSpec(oc *v1alpha1.KanidmOAuth2Client) error {
	if oc.Spec.Public && oc.Spec.AllowInsecureClientDisablePkce {
		return fmt.Errorf("spec.allowInsecureClientDisablePkce cannot be set when spec.public is true")
	}
	if oc.Spec.AllowLocalhostRedirect && !oc.Spec.Public {
		return fmt.Errorf("spec.allowLocalhostRedirect requires spec.public to be true")
	}
	return nil
}

// ValidateOAuth2ClientUpdate rejects changes to a KanidmOAuth2Client's
// immutable fields: the client type (public vs. confidential) cannot be
// changed without recreating the RS entry server-side.
func ValidateOAuth2ClientUpdate(oldObj, newObj *v1alpha1.KanidmOAuth2Client) error {
	if oldObj.Spec.Public != newObj.Spec.Public {
		return fmt.Errorf("spec.public is immutable: Public cannot be changed. was %t, got %t", oldObj.Spec.Public, newObj.Spec.Public)
	}
	if oldObj.Spec.KanidmName != "" && newObj.Spec.KanidmName != "" && oldObj.Spec.KanidmName != newObj.Spec.KanidmName {
		return fmt.Errorf("spec.kanidmName is immutable: was %q, got %q", oldObj.Spec.KanidmName, newObj.Spec.KanidmName)
	}
	return ValidateOAuth2ClientSpec(newObj)
}

// IdentityKind names an identity resource kind for OwnershipChecker use.
type IdentityKind string

const (
	KindPerson         IdentityKind = "KanidmPersonAccount"
	KindServiceAccount IdentityKind = "KanidmServiceAccount"
	KindGroup          IdentityKind = "KanidmGroup"
	KindOAuth2Client   IdentityKind = "KanidmOAuth2Client"
)

// claim is one (kanidmRef, idmName) pair already in use by some resource.
type claim struct {
	namespace  string
	name       string
	kanidmRef  v1alpha1.KanidmRef
	idmName    string
}

// CheckExclusiveOwnership reports an error if any existing resource of
// kind (other than excludeNamespace/excludeName) is bound to the same
// kanidmRef and resolves to the same IDM name as the one being
// validated.
func CheckExclusiveOwnership(ctx context.Context, reader client.Reader, kind IdentityKind, kanidmRef v1alpha1.KanidmRef, idmName, excludeNamespace, excludeName string) error {
	claims, err := listClaims(ctx, reader, kind)
	if err != nil {
		return err
	}
	for _, c := range claims {
		if c.namespace == excludeNamespace && c.name == excludeName {
			continue
		}
		if c.kanidmRef == kanidmRef && c.idmName == idmName {
			return fmt.Errorf("%s %q in namespace %q already claims IDM name %q under Kanidm %s/%s",
				kind, c.name, c.namespace, idmName, kanidmRef.Namespace, kanidmRef.Name)
		}
	}
	return nil
}

func listClaims(ctx context.Context, reader client.Reader, kind IdentityKind) ([]claim, error) {
	switch kind {
	case KindPerson:
		list := &v1alpha1.KanidmPersonAccountList{}
		if err := reader.List(ctx, list); err != nil {
			return nil, err
		}
		claims := make([]claim, 0, len(list.Items))
		for _, item := range list.Items {
			claims = append(claims, claim{
				namespace: item.Namespace,
				name:      item.Name,
				kanidmRef: item.Spec.KanidmRef,
				idmName:   resolveIDMName(item.Spec.KanidmName, item.Name),
			})
		}
		return claims, nil
	case KindServiceAccount:
		list := &v1alpha1.KanidmServiceAccountList{}
		if err := reader.List(ctx, list); err != nil {
			return nil, err
		}
		claims := make([]claim, 0, len(list.Items))
		for _, item := range list.Items {
			claims = append(claims, claim{
				namespace: item.Namespace,
				name:      item.Name,
				kanidmRef: item.Spec.KanidmRef,
				idmName:   resolveIDMName(item.Spec.KanidmName, item.Name),
			})
		}
		return claims, nil
	case KindGroup:
		list := &v1alpha1.KanidmGroupList{}
		if err := reader.List(ctx, list); err != nil {
			return nil, err
		}
		claims := make([]claim, 0, len(list.Items))
		for _, item := range list.Items {
			claims = append(claims, claim{
				namespace: item.Namespace,
				name:      item.Name,
				kanidmRef: item.Spec.KanidmRef,
				idmName:   resolveIDMName(item.Spec.KanidmName, item.Name),
			})
		}
		return claims, nil
	case KindOAuth2Client:
		list := &v1alpha1.KanidmOAuth2ClientList{}
		if err := reader.List(ctx, list); err != nil {
			return nil, err
		}
		claims := make([]claim, 0, len(list.Items))
		for _, item := range list.Items {
			claims = append(claims, claim{
				namespace: item.Namespace,
				name:      item.Name,
				kanidmRef: item.Spec.KanidmRef,
				idmName:   resolveIDMName(item.Spec.KanidmName, item.Name),
			})
		}
		return claims, nil
	default:
		return nil, fmt.Errorf("unknown identity kind %q", kind)
	}
}

// resolveIDMName returns override if set, otherwise resourceName: the
// same precedence every reconciler applies when naming the server-side
// entry.
func resolveIDMName(override, resourceName string) string {
	if override != "" {
		return override
	}
	return resourceName
}
