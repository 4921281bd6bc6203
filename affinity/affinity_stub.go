//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-placement/api"
)

func currentCPUPlatform() (int, error) {
	return -1, fmt.Errorf("affinity: current cpu: %w", api.ErrNotSupported)
}

func allowedCPUsPlatform() ([]int, error) {
	return nil, fmt.Errorf("affinity: allowed cpus: %w", api.ErrNotSupported)
}
