package concurrency

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/momentics/hioload-placement/api"
)

func TestFanOut_EveryIndexOnce(t *testing.T) {
	const n = 16
	var hits [n]int32
	err := FanOut(context.Background(), n, func(_ context.Context, idx int) error {
		atomic.AddInt32(&hits[idx], 1)
		return nil
	})
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
	for i, h := range hits {
		if h != 1 {
			t.Errorf("index %d ran %d times", i, h)
		}
	}
}

func TestFanOut_WorkersRunConcurrently(t *testing.T) {
	const n = 6
	// Every worker blocks until all have entered the body; a serial
	// implementation would deadlock here.
	var entered sync.WaitGroup
	entered.Add(n)
	err := FanOut(context.Background(), n, func(_ context.Context, _ int) error {
		entered.Done()
		entered.Wait()
		return nil
	})
	if err != nil {
		t.Fatalf("FanOut: %v", err)
	}
}

func TestFanOut_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := FanOut(context.Background(), 4, func(_ context.Context, idx int) error {
		if idx == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestFanOut_PanicBecomesError(t *testing.T) {
	err := FanOut(context.Background(), 3, func(_ context.Context, idx int) error {
		if idx == 1 {
			panic("bad slot")
		}
		return nil
	})
	if api.CodeOf(err) != api.ErrCodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestFanOut_RejectsZeroWorkers(t *testing.T) {
	if err := FanOut(context.Background(), 0, nil); api.CodeOf(err) != api.ErrCodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestFanOut_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ran int32
	err := FanOut(ctx, 2, func(_ context.Context, _ int) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ran != 0 {
		t.Errorf("%d bodies ran after cancel", ran)
	}
}

func TestFanOut_RejectsMoreWorkersThanThreads(t *testing.T) {
	var ran int32
	err := FanOut(context.Background(), MaxWorkers()+1, func(_ context.Context, _ int) error {
		atomic.AddInt32(&ran, 1)
		return nil
	})
	if api.CodeOf(err) != api.ErrCodeAllocation {
		t.Fatalf("expected allocation error, got %v", err)
	}
	if ran != 0 {
		t.Errorf("%d bodies ran past the thread limit", ran)
	}
}

func TestMaxWorkers_LeavesLimitUntouched(t *testing.T) {
	max := MaxWorkers()
	if max < 1 {
		t.Fatalf("MaxWorkers = %d", max)
	}
	limit := debug.SetMaxThreads(2 * max)
	if limit != 2*max && limit != 2*max+1 {
		t.Errorf("thread limit changed to %d", limit)
	}
}
