// File: internal/placement/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package placement

import (
	"context"
	"io"
	"log/slog"

	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/control"
	"github.com/momentics/hioload-placement/internal/collective"
	"github.com/momentics/hioload-placement/internal/concurrency"
	"github.com/momentics/hioload-placement/internal/layout"
	"github.com/momentics/hioload-placement/internal/probe"
	"github.com/momentics/hioload-placement/internal/report"
)

// Phase names recorded in the metrics registry.
const (
	PhaseFanOut   = "phase.fanout"
	PhaseExchange = "phase.size_exchange"
	PhasePlan     = "phase.plan"
	PhaseGatherv  = "phase.gatherv"
	PhaseEmit     = "phase.emit"
)

// Options configures one participant's run.
type Options struct {
	Comm    collective.Communicator
	Workers int
	Prober  *probe.Prober

	// Out receives the report on the coordinator.
	Out    io.Writer
	Format report.Format

	Logger  *slog.Logger
	Metrics *control.MetricsRegistry
}

// Result is what a run produced. Report is nil off the coordinator.
type Result struct {
	Counts collective.Counts
	Report *report.Report
}

// Run executes the whole protocol for one participant. Any failure before the
// collection completes is announced to the rest of the job through Abort.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Comm == nil || opts.Prober == nil {
		return nil, api.Wrap(api.ErrCodeInternal, api.ErrInvalidArgument, "run needs a communicator and a prober")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = control.NewMetricsRegistry()
	}
	comm := opts.Comm
	log := opts.Logger.With("rank", comm.Rank())
	fail := func(err error) (*Result, error) {
		comm.Abort(err)
		log.Error("run failed", "error", err)
		return nil, err
	}

	buf, err := probe.NewBuffer(opts.Workers)
	if err != nil {
		return fail(err)
	}

	stop := opts.Metrics.Time(PhaseFanOut)
	err = concurrency.FanOut(ctx, opts.Workers, func(ctx context.Context, w int) error {
		obs, err := opts.Prober.Probe()
		if err != nil {
			return api.Wrap(api.CodeOf(err), err, "worker probe failed").WithContext("worker", w)
		}
		probe.Encode(buf.Slot(w), probe.Text(comm.Rank(), w, opts.Workers, obs))
		return nil
	})
	stop()
	if err != nil {
		return fail(err)
	}
	log.Debug("workers sampled", "workers", opts.Workers)

	stop = opts.Metrics.Time(PhaseExchange)
	counts, err := comm.GatherCounts(ctx, opts.Workers)
	stop()
	if err != nil {
		return fail(err)
	}

	var plan *layout.Table
	if comm.IsCoordinator() {
		stop = opts.Metrics.Time(PhasePlan)
		plan, err = layout.Plan(counts.Vector, probe.Capacity)
		stop()
		if err != nil {
			return fail(err)
		}
	}

	stop = opts.Metrics.Time(PhaseGatherv)
	assembled, err := comm.Gatherv(ctx, buf.Bytes(), plan)
	stop()
	if err != nil {
		return fail(err)
	}

	res := &Result{Counts: counts}
	if !comm.IsCoordinator() {
		return res, nil
	}

	stop = opts.Metrics.Time(PhaseEmit)
	defer stop()
	rep, err := report.Build(counts.RunID, counts.Vector, plan, assembled)
	if err != nil {
		return nil, err
	}
	if opts.Out != nil {
		if err := report.NewEmitter(opts.Out, opts.Format).Emit(rep); err != nil {
			return nil, err
		}
	}
	res.Report = rep
	log.Debug("report emitted", "run", counts.RunID, "records", len(rep.Records), "total", rep.Total)
	return res, nil
}
