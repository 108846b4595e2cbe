//go:build windows

package processstate

import (
	"fmt"
	"syscall"
)

const (
	stillActive                    = 259
	processQueryLimitedInformation = 0x1000
)

// IsProcessRunning reports whether a process with the given pid is alive,
// using a minimal-rights process handle and the exit code probe.
func IsProcessRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid PID format")
	}

	handle, err := syscall.OpenProcess(processQueryLimitedInformation, false, uint32(pid))
	if err != nil {
		// process doesn't exist or access denied
		return false, err
	}
	defer syscall.CloseHandle(handle)

	var exitCode uint32
	if err := syscall.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false, err
	}

	return exitCode == stillActive, nil
}
