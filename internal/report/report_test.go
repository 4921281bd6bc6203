package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/internal/layout"
	"github.com/momentics/hioload-placement/internal/probe"
)

// assemble renders the records of a job the way the collector would lay
// them out, with cpu = 10*rank + worker.
func assemble(t *testing.T, vector []int) (*layout.Table, []byte) {
	t.Helper()
	plan, err := layout.Plan(vector, probe.Capacity)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	out := make([]byte, plan.Total)
	for rank, n := range vector {
		lo, _ := plan.Region(rank)
		for w := 0; w < n; w++ {
			off := lo + w*probe.Capacity
			obs := probe.Observation{CPU: 10*rank + w, Host: "node" + string(rune('a'+rank))}
			probe.Encode(out[off:off+probe.Capacity], probe.Text(rank, w, n, obs))
		}
	}
	return plan, out
}

func TestEmit_TextTwoRanks(t *testing.T) {
	vector := []int{2, 3}
	plan, assembled := assemble(t, vector)
	r, err := Build("run-1", vector, plan, assembled)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var out bytes.Buffer
	if err := NewEmitter(&out, FormatText).Emit(r); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	want := strings.Join([]string{
		"Total threads: 5",
		"  Rank 0 has 2 threads",
		"  Rank 1 has 3 threads",
		Separator,
		"Rank   0, thread 0 of 2 (cpu 0 of nodea)",
		"          thread 1 of 2 (cpu 1 of nodea)",
		"Rank   1, thread 0 of 3 (cpu 10 of nodeb)",
		"          thread 1 of 3 (cpu 11 of nodeb)",
		"          thread 2 of 3 (cpu 12 of nodeb)",
	}, "\n") + "\n"
	if out.String() != want {
		t.Errorf("report mismatch:\n got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestBuild_AttributesRecordsByLayout(t *testing.T) {
	vector := []int{1, 16, 1}
	plan, assembled := assemble(t, vector)
	r, err := Build("", vector, plan, assembled)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.Total != 18 || len(r.Records) != 18 {
		t.Fatalf("total=%d records=%d, want 18", r.Total, len(r.Records))
	}
	for i, e := range r.Records {
		wantRank, wantThread := 1, i-1
		switch {
		case i == 0:
			wantRank, wantThread = 0, 0
		case i == 17:
			wantRank, wantThread = 2, 0
		}
		if e.Rank != wantRank || e.Thread != wantThread || e.Threads != vector[wantRank] {
			t.Errorf("record %d = rank %d thread %d of %d, want rank %d thread %d of %d",
				i, e.Rank, e.Thread, e.Threads, wantRank, wantThread, vector[wantRank])
		}
		if e.CPU != 10*wantRank+wantThread {
			t.Errorf("record %d cpu = %d", i, e.CPU)
		}
	}
}

func TestBuild_UnparsableRecordKeepsLine(t *testing.T) {
	vector := []int{1}
	plan, _ := layout.Plan(vector, probe.Capacity)
	assembled := make([]byte, plan.Total)
	probe.Encode(assembled, "garbage")
	r, err := Build("", vector, plan, assembled)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if e := r.Records[0]; e.CPU != -1 || e.Host != "" || e.Line != "garbage" {
		t.Errorf("entry = %+v", e)
	}
}

func TestBuild_RejectsInconsistentInput(t *testing.T) {
	vector := []int{2, 3}
	plan, assembled := assemble(t, vector)
	if _, err := Build("", vector, nil, assembled); !errors.Is(err, api.ErrNoLayout) {
		t.Errorf("nil plan: got %v", err)
	}
	if _, err := Build("", []int{5}, plan, assembled); err == nil {
		t.Error("vector/plan disagreement accepted")
	}
	if _, err := Build("", []int{3, 2}, plan, assembled); api.CodeOf(err) != api.ErrCodeInternal {
		t.Errorf("regions planned from another vector: got %v", err)
	}
	if _, err := Build("", vector, plan, assembled[:len(assembled)-1]); !errors.Is(err, api.ErrLengthMismatch) {
		t.Errorf("short report: got %v", err)
	}
}

func TestEmit_JSON(t *testing.T) {
	vector := []int{2, 3}
	plan, assembled := assemble(t, vector)
	r, err := Build("run-1", vector, plan, assembled)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var out bytes.Buffer
	if err := NewEmitter(&out, FormatJSON).Emit(r); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	var back Report
	if err := jsoniter.Unmarshal(out.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.RunID != "run-1" || back.Total != 5 || len(back.Records) != 5 {
		t.Fatalf("decoded %+v", back)
	}
	if !strings.Contains(out.String(), `"total_threads": 5`) {
		t.Errorf("missing total_threads field:\n%s", out.String())
	}
	if back.Records[4].Host != "nodeb" || back.Records[4].CPU != 12 {
		t.Errorf("last record = %+v", back.Records[4])
	}
}

func TestEmit_YAML(t *testing.T) {
	vector := []int{1, 1, 1}
	plan, assembled := assemble(t, vector)
	r, err := Build("run-2", vector, plan, assembled)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var out bytes.Buffer
	if err := NewEmitter(&out, FormatYAML).Emit(r); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	var back Report
	if err := yaml.Unmarshal(out.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Total != 3 || len(back.Ranks) != 3 || len(back.Records) != 3 {
		t.Fatalf("decoded %+v", back)
	}
	for i, e := range back.Records {
		if e.Rank != i || e.Thread != 0 || e.Threads != 1 {
			t.Errorf("record %d = %+v", i, e)
		}
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatText, "text": FormatText, "JSON": FormatJSON, " yaml ": FormatYAML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); api.CodeOf(err) != api.ErrCodeConfig {
		t.Errorf("xml: expected config error, got %v", err)
	}
}
