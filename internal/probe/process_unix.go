//go:build !windows

package probe

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup runs the command in its own process group and makes
// cancellation kill the whole group, so helpers the command spawned cannot
// keep its output pipes open past the deadline.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
