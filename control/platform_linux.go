//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes: the affinity mask the launcher gave us.

package control

import (
	"runtime"

	"github.com/momentics/hioload-placement/affinity"
)

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.allowed_cpus", func() any {
		cpus, err := affinity.AllowedCPUs()
		if err != nil {
			return err.Error()
		}
		return cpus
	})
}
