package probe

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-placement/api"
)

func TestNewBuffer_RejectsEmpty(t *testing.T) {
	_, err := NewBuffer(0)
	var e *api.Error
	if !errors.As(err, &e) || e.Code != api.ErrCodeAllocation {
		t.Fatalf("expected allocation error, got %v", err)
	}
}

func TestBuffer_SlotsAreDisjoint(t *testing.T) {
	b, err := NewBuffer(3)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if len(b.Bytes()) != 3*Capacity {
		t.Fatalf("buffer size %d", len(b.Bytes()))
	}
	for i := 0; i < b.Slots(); i++ {
		s := b.Slot(i)
		if len(s) != Capacity || cap(s) != Capacity {
			t.Fatalf("slot %d len=%d cap=%d", i, len(s), cap(s))
		}
		Encode(s, Text(0, i, 3, Observation{CPU: i, Host: "h"}))
	}
	recs, err := Records(b.Bytes())
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	for i, r := range recs {
		f, ok := Parse(r)
		if !ok || f.Thread != i || f.CPU != i {
			t.Errorf("record %d = %q", i, r)
		}
	}
}

func TestRecords_RejectsMisaligned(t *testing.T) {
	if _, err := Records(make([]byte, Capacity+1)); err == nil {
		t.Fatal("expected error for misaligned report")
	}
}
