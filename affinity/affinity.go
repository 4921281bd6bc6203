// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for observing CPU placement. Platform-specific implementations
// are located in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded
// by build tags.

package affinity

import "github.com/momentics/hioload-placement/api"

// CurrentCPU returns the logical CPU the calling OS thread is running on right now.
// Callers that need a stable answer for a goroutine must hold runtime.LockOSThread.
// On unsupported platforms returns api.ErrNotSupported.
func CurrentCPU() (int, error) {
	return currentCPUPlatform()
}

// AllowedCPUs returns the logical CPUs the calling thread may be scheduled on,
// in ascending order.
func AllowedCPUs() ([]int, error) {
	return allowedCPUsPlatform()
}

// Source is the api.CPUSource backed by CurrentCPU.
var Source api.CPUSource = api.CPUSourceFunc(CurrentCPU)
