package layout

import (
	"math/rand"
	"testing"

	"github.com/momentics/hioload-placement/api"
)

func TestPlan_Example(t *testing.T) {
	tab, err := Plan([]int{2, 3}, 256)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if tab.Offsets[0] != 0 || tab.Offsets[1] != 512 {
		t.Errorf("offsets = %v", tab.Offsets)
	}
	if tab.Lengths[0] != 512 || tab.Lengths[1] != 768 {
		t.Errorf("lengths = %v", tab.Lengths)
	}
	if tab.Total != 1280 {
		t.Errorf("total = %d", tab.Total)
	}
}

// Every byte of [0, Total) belongs to exactly one region, regions follow
// each other without gaps, and each length matches its count.
func TestPlan_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const capacity = 64
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(12)
		counts := make([]int, n)
		sum := 0
		for i := range counts {
			counts[i] = 1 + rng.Intn(40)
			sum += counts[i]
		}
		tab, err := Plan(counts, capacity)
		if err != nil {
			t.Fatalf("Plan(%v): %v", counts, err)
		}
		if tab.Len() != n {
			t.Fatalf("Len = %d, want %d", tab.Len(), n)
		}
		if tab.Offsets[0] != 0 {
			t.Fatalf("offset[0] = %d", tab.Offsets[0])
		}
		for i := 1; i < n; i++ {
			if tab.Offsets[i] != tab.Offsets[i-1]+counts[i-1]*capacity {
				t.Fatalf("counts %v: offset[%d] = %d", counts, i, tab.Offsets[i])
			}
		}
		if tab.Total != sum*capacity {
			t.Fatalf("total = %d, want %d", tab.Total, sum*capacity)
		}
		owners := make([]int, tab.Total)
		for i := 0; i < n; i++ {
			lo, hi := tab.Region(i)
			if hi-lo != counts[i]*capacity {
				t.Fatalf("region %d length %d", i, hi-lo)
			}
			if tab.Records(i, capacity) != counts[i] {
				t.Fatalf("region %d records %d", i, tab.Records(i, capacity))
			}
			for p := lo; p < hi; p++ {
				owners[p]++
			}
		}
		for p, c := range owners {
			if c != 1 {
				t.Fatalf("byte %d covered %d times", p, c)
			}
		}
	}
}

func TestPlan_Heterogeneous(t *testing.T) {
	tab, err := Plan([]int{1, 16, 1}, 256)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if lo, hi := tab.Region(2); lo != 17*256 || hi != 18*256 {
		t.Errorf("region 2 = [%d,%d)", lo, hi)
	}
}

func TestPlan_Rejects(t *testing.T) {
	cases := []struct {
		name     string
		counts   []int
		capacity int
		code     api.ErrorCode
	}{
		{"empty", nil, 256, api.ErrCodeInternal},
		{"zero capacity", []int{1}, 0, api.ErrCodeInternal},
		{"zero workers", []int{2, 0, 1}, 256, api.ErrCodeCollective},
		{"negative workers", []int{-1}, 256, api.ErrCodeCollective},
		{"overflow", []int{int(^uint(0) >> 2), int(^uint(0) >> 2)}, 256, api.ErrCodeAllocation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.counts, tc.capacity)
			if api.CodeOf(err) != tc.code {
				t.Fatalf("got %v, want code %v", err, tc.code)
			}
		})
	}
}

func TestTable_Owner(t *testing.T) {
	tab, err := Plan([]int{2, 1, 3}, 10)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	checks := []struct{ pos, rank, local int }{
		{0, 0, 0}, {19, 0, 19}, {20, 1, 0}, {29, 1, 9}, {30, 2, 0}, {59, 2, 29},
	}
	for _, c := range checks {
		r, l, ok := tab.Owner(c.pos)
		if !ok || r != c.rank || l != c.local {
			t.Errorf("Owner(%d) = %d,%d,%v want %d,%d", c.pos, r, l, ok, c.rank, c.local)
		}
	}
	if _, _, ok := tab.Owner(60); ok {
		t.Error("Owner(60) should be out of range")
	}
}
