//go:build !linux

// File: internal/probe/host_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package probe

import "os"

func platformHostname() (string, error) {
	return os.Hostname()
}
