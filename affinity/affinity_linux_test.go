//go:build linux

package affinity

import (
	"runtime"
	"testing"
)

func TestCurrentCPU_WithinAllowedSet(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	allowed, err := AllowedCPUs()
	if err != nil {
		t.Fatalf("AllowedCPUs: %v", err)
	}
	if len(allowed) == 0 {
		t.Fatal("empty affinity mask")
	}
	cpu, err := CurrentCPU()
	if err != nil {
		t.Fatalf("CurrentCPU: %v", err)
	}
	if cpu < 0 {
		t.Fatalf("negative cpu %d", cpu)
	}
	found := false
	for _, c := range allowed {
		if c == cpu {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("cpu %d not in allowed set %v", cpu, allowed)
	}
}

func TestAllowedCPUs_Ascending(t *testing.T) {
	allowed, err := AllowedCPUs()
	if err != nil {
		t.Fatalf("AllowedCPUs: %v", err)
	}
	for i := 1; i < len(allowed); i++ {
		if allowed[i] <= allowed[i-1] {
			t.Fatalf("not ascending: %v", allowed)
		}
	}
}

func TestSource_MatchesCurrentCPU(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if _, err := Source.CurrentCPU(); err != nil {
		t.Fatalf("Source.CurrentCPU: %v", err)
	}
}
