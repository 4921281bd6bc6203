// File: internal/report/report.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package report

import (
	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/internal/layout"
	"github.com/momentics/hioload-placement/internal/probe"
)

// Summary is one participant's line of the header.
type Summary struct {
	Rank    int `json:"rank" yaml:"rank"`
	Threads int `json:"threads" yaml:"threads"`
}

// Entry is one record of the report. Rank, Thread and Threads come from the
// layout; CPU and Host are read back from the record text and are -1 and
// empty when the text cannot be parsed.
type Entry struct {
	Rank    int    `json:"rank" yaml:"rank"`
	Thread  int    `json:"thread" yaml:"thread"`
	Threads int    `json:"threads" yaml:"threads"`
	CPU     int    `json:"cpu" yaml:"cpu"`
	Host    string `json:"host,omitempty" yaml:"host,omitempty"`
	Line    string `json:"line" yaml:"line"`
}

// Report is the coordinator's view of one run.
type Report struct {
	RunID   string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Total   int       `json:"total_threads" yaml:"total_threads"`
	Ranks   []Summary `json:"ranks" yaml:"ranks"`
	Records []Entry   `json:"records" yaml:"records"`
}

// Build checks the assembled bytes against the plan and splits them into
// entries in storage order.
func Build(runID string, vector []int, plan *layout.Table, assembled []byte) (*Report, error) {
	if plan == nil {
		return nil, api.Wrap(api.ErrCodeInternal, api.ErrNoLayout, "report needs the layout")
	}
	if plan.Len() != len(vector) {
		return nil, api.NewError(api.ErrCodeInternal, "layout does not match worker counts").
			WithContext("regions", plan.Len()).WithContext("ranks", len(vector))
	}
	if len(assembled) != plan.Total {
		return nil, api.Wrap(api.ErrCodeInternal, api.ErrLengthMismatch, "assembled report size").
			WithContext("want", plan.Total).WithContext("got", len(assembled))
	}
	lines, err := probe.Records(assembled)
	if err != nil {
		return nil, err
	}

	r := &Report{
		RunID:   runID,
		Ranks:   make([]Summary, len(vector)),
		Records: make([]Entry, 0, len(lines)),
	}
	for i, n := range vector {
		if got := plan.Records(i, probe.Capacity); got != n {
			return nil, api.NewError(api.ErrCodeInternal, "layout region disagrees with worker count").
				WithContext("rank", i).WithContext("records", got).WithContext("workers", n)
		}
		r.Ranks[i] = Summary{Rank: i, Threads: n}
		r.Total += n
	}
	for i, line := range lines {
		rank, local, ok := plan.Owner(i * probe.Capacity)
		if !ok {
			return nil, api.NewError(api.ErrCodeInternal, "record outside the layout").WithContext("record", i)
		}
		e := Entry{Rank: rank, Thread: local / probe.Capacity, Threads: vector[rank], CPU: -1, Line: line}
		if f, ok := probe.Parse(line); ok {
			e.CPU = f.CPU
			e.Host = f.Host
		}
		r.Records = append(r.Records, e)
	}
	return r, nil
}
