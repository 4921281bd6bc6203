// File: internal/probe/host.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package probe

import (
	"os"

	"github.com/momentics/hioload-placement/api"
)

// HostNameMax bounds host names the way HOST_NAME_MAX does on Linux.
const HostNameMax = 255

// Hostname returns the name of the node this participant executes on.
func Hostname() (string, error) {
	name, err := platformHostname()
	if err != nil || name == "" {
		name, err = os.Hostname()
	}
	if err != nil {
		return "", api.Wrap(api.ErrCodeBootstrap, err, "cannot resolve host name")
	}
	return boundHost(name), nil
}

func boundHost(name string) string {
	if len(name) > HostNameMax {
		return name[:HostNameMax]
	}
	return name
}
