// File: internal/probe/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package probe

import (
	"math"

	"github.com/momentics/hioload-placement/api"
)

// Buffer is a participant's private record storage: one Capacity-wide slot per
// worker index, laid out contiguously.
type Buffer struct {
	data  []byte
	slots int
}

// NewBuffer allocates a buffer with the given number of slots.
func NewBuffer(slots int) (*Buffer, error) {
	if slots < 1 || slots > math.MaxInt/Capacity {
		return nil, api.NewError(api.ErrCodeAllocation, "invalid record buffer size").
			WithContext("slots", slots)
	}
	return &Buffer{data: make([]byte, slots*Capacity), slots: slots}, nil
}

// Slots returns the number of records the buffer holds.
func (b *Buffer) Slots() int { return b.slots }

// Slot returns the storage of record i. The slice is capped so a write can
// never spill into the neighbouring slot.
func (b *Buffer) Slot(i int) []byte {
	off := i * Capacity
	return b.data[off : off+Capacity : off+Capacity]
}

// Bytes returns the whole buffer as sent by the collector.
func (b *Buffer) Bytes() []byte { return b.data }

// Records splits an assembled report into its trimmed record lines.
func Records(assembled []byte) ([]string, error) {
	if len(assembled)%Capacity != 0 {
		return nil, api.NewError(api.ErrCodeInternal, "assembled report is not record aligned").
			WithContext("bytes", len(assembled))
	}
	out := make([]string, 0, len(assembled)/Capacity)
	for off := 0; off < len(assembled); off += Capacity {
		out = append(out, Decode(assembled[off:off+Capacity]))
	}
	return out, nil
}
