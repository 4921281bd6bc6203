// File: internal/probe/probe.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package probe

import (
	"github.com/momentics/hioload-placement/api"
)

// Observation is what one worker learns about itself.
type Observation struct {
	CPU  int
	Host string
}

// Prober samples the CPU of the calling thread. Host is fixed per participant.
type Prober struct {
	host string
	cpu  api.CPUSource
}

// NewProber builds a prober for a participant running on host.
func NewProber(host string, src api.CPUSource) *Prober {
	return &Prober{host: boundHost(host), cpu: src}
}

// Host returns the participant's host name.
func (p *Prober) Host() string { return p.host }

// Probe samples the current CPU. The caller is expected to hold its OS thread
// locked, otherwise the sample describes whichever thread the runtime picked.
func (p *Prober) Probe() (Observation, error) {
	cpu, err := p.cpu.CurrentCPU()
	if err != nil {
		return Observation{}, api.Wrap(api.ErrCodeProbe, err, "cannot read current cpu")
	}
	return Observation{CPU: cpu, Host: p.host}, nil
}
