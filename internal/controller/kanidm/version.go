package kanidm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver"

	"github.com/kaniop/kaniop/api/v1alpha1"
	"github.com/kaniop/kaniop/internal/kerrors"
)

// minCompatibleVersion is the oldest kanidmd release this operator's
// client-side assumptions (attribute names, API shapes) are known to
// still hold against.
var minCompatibleVersion = semver.MustParse("1.3.0")

var imageTagPattern = regexp.MustCompile(`:(v?[0-9]+\.[0-9]+\.[0-9]+)`)

// ExtractImageTag pulls the semver-looking tag out of a container image
// reference, e.g. "kanidm/server:1.4.2" -> "1.4.2".
func ExtractImageTag(image string) (string, error) {
	matches := imageTagPattern.FindStringSubmatch(image)
	if matches == nil {
		return "", fmt.Errorf("no semver tag found in image %q", image)
	}
	return strings.TrimPrefix(matches[1], "v"), nil
}

// CheckCompatibility parses tag as a semver version and reports whether
// it is at or above minCompatibleVersion.
func CheckCompatibility(tag string) (bool, error) {
	v, err := semver.Parse(tag)
	if err != nil {
		return false, fmt.Errorf("parsing image tag %q: %w", tag, err)
	}
	return v.GTE(minCompatibleVersion), nil
}

// ExecFunc runs a command inside a pod's container and returns its
// stdout, or an error wrapping stderr on non-zero exit. Reconcilers
// inject this so tests can stub it without a real apiserver exec stream.
type ExecFunc func(ctx context.Context, pod, container string, command []string) (stdout string, err error)

// RunUpgradeCheck runs `kanidmd domain upgrade-check` inside the replica
// group's first pod and reports whether it passed.
func RunUpgradeCheck(ctx context.Context, exec ExecFunc, pod string) (passed bool, err error) {
	command := []string{"kanidmd", "domain", "upgrade-check"}
	_, err = exec(ctx, pod, "kanidmd", command)
	if err != nil {
		var execErr *kerrors.KubeExecError
		if errors.As(err, &execErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PrimaryPodName returns the StatefulSet pod name probed by the upgrade
// pre-check: the first pod of replicaGroups[0], per spec ordering.
func PrimaryPodName(kanidm *v1alpha1.Kanidm) (string, error) {
	if len(kanidm.Spec.ReplicaGroups) == 0 {
		return "", fmt.Errorf("kanidm %s/%s has no replica groups", kanidm.Namespace, kanidm.Name)
	}
	group := kanidm.Spec.ReplicaGroups[0]
	return fmt.Sprintf("%s-0", statefulSetName(kanidm.Name, group.Name)), nil
}
