// Package api
// Author: momentics@gmail.com
//
// CPU placement observation contract.

package api

// CPUSource reports the logical CPU the calling OS thread is scheduled on.
// The value is a point-in-time sample: the thread may migrate right after.
type CPUSource interface {
	CurrentCPU() (int, error)
}

// CPUSourceFunc adapts a plain function to CPUSource.
type CPUSourceFunc func() (int, error)

// CurrentCPU calls f.
func (f CPUSourceFunc) CurrentCPU() (int, error) { return f() }
