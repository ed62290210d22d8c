package kanidm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"

	"github.com/kaniop/kaniop/internal/kerrors"
)

// NewPodExecFunc returns an ExecFunc that runs commands over a real SPDY
// exec stream, used by the upgrade pre-check against the live kanidmd
// pod. Tests inject a stub ExecFunc instead of this one.
func NewPodExecFunc(restConfig *rest.Config, clientset kubernetes.Interface, namespace string) ExecFunc {
	return func(ctx context.Context, pod, container string, command []string) (string, error) {
		req := clientset.CoreV1().RESTClient().Post().
			Resource("pods").
			Name(pod).
			Namespace(namespace).
			SubResource("exec").
			VersionedParams(&corev1.PodExecOptions{
				Container: container,
				Command:   command,
				Stdout:    true,
				Stderr:    true,
			}, scheme.ParameterCodec)

		executor, err := remotecommand.NewSPDYExecutor(restConfig, http.MethodPost, req.URL())
		if err != nil {
			return "", kerrors.NewKubeExecError(pod, container, command, "", fmt.Errorf("building executor: %w", err))
		}

		var stdout, stderr bytes.Buffer
		err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
			Stdout: &stdout,
			Stderr: &stderr,
		})
		if err != nil {
			return stdout.String(), kerrors.NewKubeExecError(pod, container, command, stderr.String(), err)
		}
		return stdout.String(), nil
	}
}

// NewPodExecStdinFunc is NewPodExecFunc's counterpart for commands that
// need a value piped on stdin rather than passed as an argument.
func NewPodExecStdinFunc(restConfig *rest.Config, clientset kubernetes.Interface, namespace string) ExecStdinFunc {
	return func(ctx context.Context, pod, container string, command []string, stdin string) (string, error) {
		req := clientset.CoreV1().RESTClient().Post().
			Resource("pods").
			Name(pod).
			Namespace(namespace).
			SubResource("exec").
			VersionedParams(&corev1.PodExecOptions{
				Container: container,
				Command:   command,
				Stdin:     true,
				Stdout:    true,
				Stderr:    true,
			}, scheme.ParameterCodec)

		executor, err := remotecommand.NewSPDYExecutor(restConfig, http.MethodPost, req.URL())
		if err != nil {
			return "", kerrors.NewKubeExecError(pod, container, command, "", fmt.Errorf("building executor: %w", err))
		}

		var stdout, stderr bytes.Buffer
		err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
			Stdin:  strings.NewReader(stdin),
			Stdout: &stdout,
			Stderr: &stderr,
		})
		if err != nil {
			return stdout.String(), kerrors.NewKubeExecError(pod, container, command, stderr.String(), err)
		}
		return stdout.String(), nil
	}
}
