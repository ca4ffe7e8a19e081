//go:build windows

package local

import (
	"os/exec"
	"strconv"
)

// killProcessGroup kills the process tree with the given PID.
func killProcessGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}

// setProcessGroup sets the process group for the given command.
func setProcessGroup(_ *exec.Cmd) {
	// No process groups on Windows; taskkill /T handles the tree.
}
