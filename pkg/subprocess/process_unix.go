//go:build unix

package subprocess

import (
	"os/exec"
	"syscall"
)

// setProcGroup runs cmd in its own process group so killProcGroup can reap
// every child the legacy backend or builder spawns on timeout.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcGroup sends SIGKILL to the whole process group (negative pid).
func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
