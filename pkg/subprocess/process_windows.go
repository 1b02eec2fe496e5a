//go:build windows

package subprocess

import "os/exec"

// setProcGroup is a no-op on Windows; exec.CommandContext's own termination
// handles the common case adequately.
func setProcGroup(cmd *exec.Cmd) {}

// killProcGroup kills the process directly on Windows.
func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
