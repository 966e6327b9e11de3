//go:build linux || darwin

package builtin

import (
	"fmt"
	"os/exec"
	"syscall"
)

// applyRunAsUser drops privileges to runAsUser before exec, via the same
// setuid/setgid mechanism original_source's command_module uses (there via
// pwd.getpwnam + os.setgid/os.setuid in a preexec_fn).
func applyRunAsUser(cmd *exec.Cmd, runAsUser string) error {
	if !runAsUserSupported() {
		return fmt.Errorf("command: running as a different user is not supported on this platform")
	}
	uid, gid, err := lookupUID(runAsUser)
	if err != nil {
		return err
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Credential = &syscall.Credential{Uid: uid, Gid: gid}
	return nil
}
