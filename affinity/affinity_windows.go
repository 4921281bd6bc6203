//go:build windows
// +build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific implementation for reading the current processor number.

package affinity

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/momentics/hioload-placement/api"
)

var (
	modkernel32                   = windows.NewLazySystemDLL("kernel32.dll")
	procGetCurrentProcessorNumber = modkernel32.NewProc("GetCurrentProcessorNumber")
)

// currentCPUPlatform returns the processor number within the thread's processor group.
func currentCPUPlatform() (int, error) {
	if err := procGetCurrentProcessorNumber.Find(); err != nil {
		return -1, fmt.Errorf("affinity: %w", err)
	}
	n, _, _ := procGetCurrentProcessorNumber.Call()
	return int(n), nil
}

func allowedCPUsPlatform() ([]int, error) {
	return nil, api.ErrNotSupported
}
