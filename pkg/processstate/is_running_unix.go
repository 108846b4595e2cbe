//go:build !windows

package processstate

import (
	"fmt"
	"os"
	"syscall"
)

// IsProcessRunning reports whether a process with the given pid is alive.
// On Unix, os.FindProcess always succeeds, so liveness is probed by sending
// signal 0 and inspecting the resulting errno.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid PID format")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, err
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	if err.Error() == "os: process already finished" {
		return false, nil
	}
	errno, ok := err.(syscall.Errno)
	if !ok {
		return false, err
	}
	switch errno {
	case syscall.ESRCH:
		return false, nil
	case syscall.EPERM:
		// the process exists; we just may not signal it
		return true, nil
	}
	return false, err
}
