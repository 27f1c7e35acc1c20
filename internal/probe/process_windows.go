//go:build windows

package probe

import "os/exec"

// setupProcessGroup is a no-op on Windows; WaitDelay alone bounds the wait
// for orphaned pipe writers.
func setupProcessGroup(cmd *exec.Cmd) {}
