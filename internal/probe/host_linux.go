//go:build linux

// File: internal/probe/host_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package probe

import (
	"bytes"

	"golang.org/x/sys/unix"
)

// platformHostname reads the nodename field of uname(2).
func platformHostname() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	n := bytes.IndexByte(uts.Nodename[:], 0)
	if n < 0 {
		n = len(uts.Nodename)
	}
	return string(uts.Nodename[:n]), nil
}
