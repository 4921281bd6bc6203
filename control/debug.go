// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registry. Probes are evaluated lazily, in registration order.

package control

import (
	"log/slog"
	"sync"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
	order  []string
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook. Re-registering a name replaces
// the hook and keeps its position.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if _, ok := dp.probes[name]; !ok {
		dp.order = append(dp.order, name)
	}
	dp.probes[name] = fn
}

// LogAttrs evaluates every probe into slog attributes.
func (dp *DebugProbes) LogAttrs() []slog.Attr {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	attrs := make([]slog.Attr, 0, len(dp.order))
	for _, name := range dp.order {
		attrs = append(attrs, slog.Any(name, dp.probes[name]()))
	}
	return attrs
}
