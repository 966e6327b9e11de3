//go:build !linux && !darwin

package builtin

import (
	"fmt"
	"os/exec"
)

// applyRunAsUser returns a clear error on platforms without POSIX
// setuid/setgid semantics, rather than silently ignoring the user field.
func applyRunAsUser(_ *exec.Cmd, _ string) error {
	return fmt.Errorf("command: running as a different user is not supported on this platform")
}
