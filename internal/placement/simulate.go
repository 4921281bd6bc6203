// File: internal/placement/simulate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package placement

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/control"
	"github.com/momentics/hioload-placement/internal/collective"
	"github.com/momentics/hioload-placement/internal/concurrency"
	"github.com/momentics/hioload-placement/internal/probe"
	"github.com/momentics/hioload-placement/internal/report"
)

// SimOptions configures an in-process job.
type SimOptions struct {
	Prober  *probe.Prober
	Out     io.Writer
	Format  report.Format
	Logger  *slog.Logger
	Metrics *control.MetricsRegistry
}

// Simulate runs a whole job inside this process: one participant per entry
// of workers, each with that many workers, all wired through in-process
// links. It returns the coordinator's result.
func Simulate(ctx context.Context, workers []int, opts SimOptions) (*Result, error) {
	if len(workers) == 0 {
		return nil, api.NewError(api.ErrCodeConfig, "simulated job needs at least one participant")
	}
	total := 0
	for _, n := range workers {
		total += n
	}
	if total > concurrency.MaxWorkers() {
		return nil, api.NewError(api.ErrCodeAllocation, "simulated job needs more threads than the runtime allows").
			WithContext("workers", total).WithContext("max", concurrency.MaxWorkers())
	}
	comms, err := collective.NewLocalGroup(len(workers), opts.Logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, c := range comms {
			_ = c.Close()
		}
	}()

	results := make([]*Result, len(comms))
	errs := make([]error, len(comms))
	var g errgroup.Group
	for _, c := range comms {
		run := Options{
			Comm:    c,
			Workers: workers[c.Rank()],
			Prober:  opts.Prober,
			Logger:  opts.Logger,
		}
		if c.IsCoordinator() {
			run.Out, run.Format, run.Metrics = opts.Out, opts.Format, opts.Metrics
		}
		g.Go(func() error {
			results[c.Rank()], errs[c.Rank()] = Run(ctx, run)
			return nil
		})
	}
	_ = g.Wait()

	if err := rootCause(errs); err != nil {
		return nil, err
	}
	return results[collective.CoordinatorRank], nil
}

// rootCause prefers the failure that started an abort over the aborts it
// caused elsewhere.
func rootCause(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, api.ErrAborted) {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}
