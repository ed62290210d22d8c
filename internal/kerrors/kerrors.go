// Package kerrors defines the closed set of error categories reconcilers
// branch on when deciding whether to requeue, back off, or wait for an
// external signal.
package kerrors

import (
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// KubeError wraps a failure returned by the Kubernetes API (get, list,
// apply, delete, patch).
type KubeError struct {
	Op  string
	Err error
}

func (e *KubeError) Error() string {
	return fmt.Sprintf("kube %s: %v", e.Op, e.Err)
}

func (e *KubeError) Unwrap() error { return e.Err }

// NewKubeError wraps err as a KubeError naming the failing operation.
func NewKubeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &KubeError{Op: op, Err: err}
}

// KanidmClientError wraps a non-2xx response or transport failure talking
// to the Kanidm HTTP API.
type KanidmClientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *KanidmClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("kanidm client %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("kanidm client %s: %v", e.Op, e.Err)
}

func (e *KanidmClientError) Unwrap() error { return e.Err }

// NewKanidmClientError wraps err as a KanidmClientError naming the failing
// operation and, when available, the HTTP status code returned.
func NewKanidmClientError(op string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &KanidmClientError{Op: op, StatusCode: statusCode, Err: err}
}

// KubeExecError wraps a failure executing a command inside a pod, e.g.
// `kanidmd domain upgrade-check` during the pre-upgrade gate.
type KubeExecError struct {
	Pod       string
	Container string
	Command   []string
	Stderr    string
	Err       error
}

func (e *KubeExecError) Error() string {
	return fmt.Sprintf("exec %v in %s/%s: %v: %s", e.Command, e.Pod, e.Container, e.Err, e.Stderr)
}

func (e *KubeExecError) Unwrap() error { return e.Err }

// NewKubeExecError wraps err as a KubeExecError describing the command
// that failed and where it ran.
func NewKubeExecError(pod, container string, command []string, stderr string, err error) error {
	if err == nil {
		return nil
	}
	return &KubeExecError{Pod: pod, Container: container, Command: command, Stderr: stderr, Err: err}
}

// MissingData reports an expected secret key, status field, or condition
// that was not present where a reconciler needed it.
type MissingData struct {
	Resource string
	Field    string
}

func (e *MissingData) Error() string {
	return fmt.Sprintf("missing data: %s.%s", e.Resource, e.Field)
}

// NewMissingData builds a MissingData error for the named resource/field.
func NewMissingData(resource, field string) error {
	return &MissingData{Resource: resource, Field: field}
}

// ParseError reports malformed data read back from a Secret, annotation,
// or the Kanidm API that could not be decoded into the expected shape.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError wraps err as a ParseError naming what failed to parse.
func NewParseError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Source: source, Err: err}
}

// FinalizerError reports a conflict adding or removing a finalizer,
// typically a stale resourceVersion racing a concurrent update.
type FinalizerError struct {
	Resource string
	Err      error
}

func (e *FinalizerError) Error() string {
	return fmt.Sprintf("finalizer on %s: %v", e.Resource, e.Err)
}

func (e *FinalizerError) Unwrap() error { return e.Err }

// NewFinalizerError wraps err as a FinalizerError naming the resource
// whose finalizer update failed.
func NewFinalizerError(resource string, err error) error {
	if err == nil {
		return nil
	}
	return &FinalizerError{Resource: resource, Err: err}
}

// IsNotFoundClientError reports whether err is a KanidmClientError
// carrying a 404 response, the way a reconciler distinguishes "this
// entry does not exist yet" from a genuine transport or server failure.
func IsNotFoundClientError(err error) bool {
	var clientErr *KanidmClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == 404
}

// IsNotFoundKubeError reports whether err is a KubeError wrapping a
// Kubernetes NotFound, the way finalizer cleanup treats "the referenced
// object is already gone" as a no-op rather than a failure.
func IsNotFoundKubeError(err error) bool {
	var kubeErr *KubeError
	return errors.As(err, &kubeErr) && apierrors.IsNotFound(kubeErr.Err)
}

// IsRetryable reports whether the reconciler should requeue with backoff
// rather than wait for an external signal (a condition change, a secret
// being created by another controller, etc).
func IsRetryable(err error) bool {
	var kubeErr *KubeError
	var clientErr *KanidmClientError
	var execErr *KubeExecError
	switch {
	case errors.As(err, &kubeErr):
		return true
	case errors.As(err, &clientErr):
		return clientErr.StatusCode == 0 || clientErr.StatusCode >= 500
	case errors.As(err, &execErr):
		return true
	default:
		return false
	}
}
