// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Run metrics: phase timings and counters, kept in the order they were first
// recorded so a run's log reads like its timeline.

package control

import (
	"log/slog"
	"sync"
	"time"
)

// MetricsRegistry holds the metrics of one run.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	order   []string
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	if _, ok := mr.metrics[key]; !ok {
		mr.order = append(mr.order, key)
	}
	mr.metrics[key] = value
	mr.mu.Unlock()
}

// Time starts a stopwatch for key; calling the returned func records the
// elapsed time.
func (mr *MetricsRegistry) Time(key string) func() {
	start := time.Now()
	return func() { mr.Set(key, time.Since(start)) }
}

// Duration returns a recorded phase time.
func (mr *MetricsRegistry) Duration(key string) (time.Duration, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	d, ok := mr.metrics[key].(time.Duration)
	return d, ok
}

// LogAttrs returns the metrics as slog attributes in recording order.
func (mr *MetricsRegistry) LogAttrs() []slog.Attr {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	attrs := make([]slog.Attr, 0, len(mr.order))
	for _, k := range mr.order {
		attrs = append(attrs, slog.Any(k, mr.metrics[k]))
	}
	return attrs
}
