//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation: getcpu(2) and sched_getaffinity(2) without cgo.

package affinity

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// cpuSetSize mirrors CPU_SETSIZE from glibc.
const cpuSetSize = 1024

// currentCPUPlatform issues getcpu(2); the node and cache arguments are unused.
func currentCPUPlatform() (int, error) {
	var cpu, node uint32
	_, _, errno := unix.RawSyscall(unix.SYS_GETCPU,
		uintptr(unsafe.Pointer(&cpu)),
		uintptr(unsafe.Pointer(&node)),
		0,
	)
	if errno != 0 {
		return -1, fmt.Errorf("affinity: getcpu failed: %w", errno)
	}
	return int(cpu), nil
}

func allowedCPUsPlatform() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("affinity: sched_getaffinity failed: %w", err)
	}
	cpus := make([]int, 0, set.Count())
	for i := 0; i < cpuSetSize; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
