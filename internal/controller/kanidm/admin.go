package kanidm

import (
	"context"
	"fmt"
)

// ExecStdinFunc runs a command inside a pod, piping stdin to it. Used to
// pass generated secrets to kanidmd without exposing them as process
// arguments or pod logs.
type ExecStdinFunc func(ctx context.Context, pod, container string, command []string, stdin string) (stdout string, err error)

// ResetAdminPassword runs kanidmd's offline account-recovery command to
// set username's password to the value piped on stdin, used the first
// time a cluster becomes Available so the freshly generated admin
// passwords actually work against the running IDM.
func ResetAdminPassword(ctx context.Context, exec ExecStdinFunc, pod, username, password string) error {
	command := []string{"kanidmd", "recover-account", username, "--password-stdin"}
	if _, err := exec(ctx, pod, "kanidmd", command, password); err != nil {
		return fmt.Errorf("resetting %s password: %w", username, err)
	}
	return nil
}
