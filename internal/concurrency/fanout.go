// File: internal/concurrency/fanout.go
// Package concurrency runs a participant's workers in parallel.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FanOut starts one goroutine per worker index and wires each of them to its
// own OS thread for the lifetime of the body. Workers meet at a start barrier
// while holding their threads, so all of them are alive on distinct threads
// when they sample their placement, as in an OpenMP parallel region.

package concurrency

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-placement/api"
)

// Body is the work of a single worker. idx is in [0, n).
type Body func(ctx context.Context, idx int) error

// MaxWorkers is the largest number of workers that may hold locked threads
// at once: half the runtime's thread limit. Going past the limit is a fatal
// runtime error rather than an error value, so it is checked up front.
var MaxWorkers = sync.OnceValue(func() int {
	// SetMaxThreads is the only way to read the limit; put it straight back.
	limit := debug.SetMaxThreads(math.MaxInt32)
	debug.SetMaxThreads(limit)
	return limit / 2
})

// FanOut runs body concurrently for every index in [0, n) and waits for all of
// them. The first error cancels ctx for the remaining workers and is returned.
func FanOut(ctx context.Context, n int, body Body) error {
	if n < 1 {
		return api.NewError(api.ErrCodeConfig, "worker count must be at least 1").
			WithContext("workers", n)
	}
	if n > MaxWorkers() {
		return api.NewError(api.ErrCodeAllocation, "too many workers for the runtime thread limit").
			WithContext("workers", n).WithContext("max", MaxWorkers())
	}
	g, gctx := errgroup.WithContext(ctx)
	var arrived sync.WaitGroup
	arrived.Add(n)
	for i := 0; i < n; i++ {
		w := &worker{id: i, arrived: &arrived}
		g.Go(func() error { return w.run(gctx, body) })
	}
	return g.Wait()
}

// worker represents a single fan-out goroutine.
type worker struct {
	id      int
	arrived *sync.WaitGroup
}

// run holds the OS thread, waits for its siblings, then executes the body.
func (w *worker) run(ctx context.Context, body Body) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w.arrived.Done()
	w.arrived.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return w.execute(ctx, body)
}

// execute runs the body, turning a panic into a fatal error for the run.
func (w *worker) execute(ctx context.Context, body Body) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.NewError(api.ErrCodeInternal, fmt.Sprintf("worker panicked: %v", r)).
				WithContext("worker", w.id)
		}
	}()
	return body(ctx, w.id)
}
