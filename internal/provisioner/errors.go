package provisioner

import (
	"fmt"
	"strings"
)

// DeploymentFailure is returned when a provisioning script could not be run
// or exited non-zero. It is terminal for the invocation.
type DeploymentFailure struct {
	Operation Operation
	ExitCode  int
	Stderr    string
	Err       error
}

// Error returns the captured stderr, falling back to a generic message when
// the script wrote nothing to it.
func (e *DeploymentFailure) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return msg
	}
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s script exited with code %d", e.Operation, e.ExitCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s script failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s script failed", e.Operation)
}

func (e *DeploymentFailure) Unwrap() error {
	return e.Err
}
