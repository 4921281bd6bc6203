// File: internal/layout/layout.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package layout plans where each participant's records land in the
// coordinator's assembled report. Offsets are derived from the true
// per-participant worker counts, never from a uniform assumption.

package layout

import (
	"math"

	"github.com/momentics/hioload-placement/api"
)

// Table describes N contiguous, gap-free, non-overlapping regions.
// Offsets[0] is 0 and Offsets[i] = Offsets[i-1] + Lengths[i-1].
type Table struct {
	Offsets []int
	Lengths []int
	Total   int
}

// Plan builds the table for a worker-count vector and a record width.
func Plan(counts []int, capacity int) (*Table, error) {
	if len(counts) == 0 {
		return nil, api.NewError(api.ErrCodeInternal, "empty worker-count vector")
	}
	if capacity < 1 {
		return nil, api.NewError(api.ErrCodeInternal, "record capacity must be positive").
			WithContext("capacity", capacity)
	}
	t := &Table{
		Offsets: make([]int, len(counts)),
		Lengths: make([]int, len(counts)),
	}
	off := 0
	for i, n := range counts {
		if n < 1 {
			return nil, api.NewError(api.ErrCodeCollective, "participant reported no workers").
				WithContext("rank", i).WithContext("workers", n)
		}
		if n > math.MaxInt/capacity || off > math.MaxInt-n*capacity {
			return nil, api.NewError(api.ErrCodeAllocation, "assembled report size overflows").
				WithContext("rank", i)
		}
		t.Offsets[i] = off
		t.Lengths[i] = n * capacity
		off += t.Lengths[i]
	}
	t.Total = off
	return t, nil
}

// Len returns the number of regions.
func (t *Table) Len() int { return len(t.Offsets) }

// Region returns the half-open byte range [lo, hi) owned by participant i.
func (t *Table) Region(i int) (lo, hi int) {
	return t.Offsets[i], t.Offsets[i] + t.Lengths[i]
}

// Records returns how many records participant i contributes.
func (t *Table) Records(i, capacity int) int {
	return t.Lengths[i] / capacity
}

// Owner maps a byte offset of the assembled report back to the participant
// and that participant's local byte offset. ok is false outside [0, Total).
func (t *Table) Owner(pos int) (rank, local int, ok bool) {
	if pos < 0 || pos >= t.Total {
		return 0, 0, false
	}
	lo, hi := 0, len(t.Offsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.Offsets[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, pos - t.Offsets[lo], true
}
