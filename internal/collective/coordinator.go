// File: internal/collective/coordinator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package collective

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/internal/layout"
)

// stage tracks how far the run has progressed through the collectives.
type stage int

const (
	stageBootstrapped stage = iota
	stageCounted
	stageCollected
	stageFailed
)

// coordinator is the rank 0 end of every link.
type coordinator struct {
	size   int
	runID  string
	peers  []link // indexed by rank; peers[0] is unused
	logger *slog.Logger

	stage     stage
	counts    []int
	closeOnce sync.Once
}

func newCoordinator(size int, runID string, logger *slog.Logger) *coordinator {
	return &coordinator{
		size:   size,
		runID:  runID,
		peers:  make([]link, size),
		logger: logger.With("rank", CoordinatorRank, "run", runID),
	}
}

// Solo returns the communicator of a single-participant job.
func Solo(logger *slog.Logger) Communicator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return newCoordinator(1, newRunID(), logger)
}

func (c *coordinator) Rank() int           { return CoordinatorRank }
func (c *coordinator) Size() int           { return c.size }
func (c *coordinator) IsCoordinator() bool { return true }

func (c *coordinator) GatherCounts(ctx context.Context, workers int) (Counts, error) {
	if c.stage != stageBootstrapped {
		return Counts{}, c.outOfOrder("size exchange")
	}
	if workers < 1 {
		return Counts{}, api.NewError(api.ErrCodeConfig, "worker count must be at least 1").
			WithContext("workers", workers)
	}
	vec := make([]int, c.size)
	vec[CoordinatorRank] = workers

	err := c.fromEach(ctx, func(ctx context.Context, rank int, f frame) error {
		if f.Kind != kindCount {
			return unexpected(rank, kindCount, f)
		}
		if f.Count < 1 {
			return api.NewError(api.ErrCodeCollective, "participant reported no workers").
				WithContext("rank", rank).WithContext("workers", f.Count)
		}
		vec[rank] = f.Count
		return nil
	})
	if err != nil {
		return Counts{}, c.fail(err)
	}

	total := 0
	for _, n := range vec {
		total += n
	}
	// Release only after every count has arrived.
	if err := c.toEach(ctx, frame{Kind: kindCountsAck, RunID: c.runID}); err != nil {
		return Counts{}, c.fail(err)
	}
	c.stage = stageCounted
	c.counts = vec
	c.logger.Debug("size exchange complete", "vector", vec, "total", total)
	return Counts{RunID: c.runID, Vector: vec, Total: total}, nil
}

func (c *coordinator) Gatherv(ctx context.Context, buf []byte, plan *layout.Table) ([]byte, error) {
	if c.stage != stageCounted {
		return nil, c.outOfOrder("collection")
	}
	if err := c.checkPlan(plan); err != nil {
		return nil, c.fail(err)
	}
	if len(buf) != plan.Lengths[CoordinatorRank] {
		return nil, c.fail(mismatch(CoordinatorRank, plan.Lengths[CoordinatorRank], len(buf)))
	}

	out := make([]byte, plan.Total)
	lo, hi := plan.Region(CoordinatorRank)
	copy(out[lo:hi], buf)

	// Each goroutine writes only its participant's planned region.
	err := c.fromEach(ctx, func(ctx context.Context, rank int, f frame) error {
		if f.Kind != kindPayload {
			return unexpected(rank, kindPayload, f)
		}
		if len(f.Payload) != plan.Lengths[rank] {
			return mismatch(rank, plan.Lengths[rank], len(f.Payload))
		}
		lo, hi := plan.Region(rank)
		copy(out[lo:hi], f.Payload)
		return nil
	})
	if err != nil {
		return nil, c.fail(err)
	}
	if err := c.toEach(ctx, frame{Kind: kindPayloadAck, RunID: c.runID}); err != nil {
		return nil, c.fail(err)
	}
	c.stage = stageCollected
	c.logger.Debug("collection complete", "bytes", plan.Total)
	return out, nil
}

// checkPlan refuses a table that was not planned from the exchanged vector.
func (c *coordinator) checkPlan(plan *layout.Table) error {
	if plan == nil {
		return api.Wrap(api.ErrCodeCollective, api.ErrNoLayout, "collection started without a layout")
	}
	if plan.Len() != c.size {
		return api.Wrap(api.ErrCodeCollective, api.ErrNoLayout, "layout does not cover the job").
			WithContext("regions", plan.Len()).WithContext("size", c.size)
	}
	width := 0
	if c.counts[CoordinatorRank] > 0 {
		width = plan.Lengths[CoordinatorRank] / c.counts[CoordinatorRank]
	}
	end := 0
	for rank, n := range c.counts {
		if width < 1 || plan.Offsets[rank] != end || plan.Lengths[rank] != n*width {
			return api.Wrap(api.ErrCodeCollective, api.ErrNoLayout, "layout disagrees with exchanged counts").
				WithContext("rank", rank)
		}
		end += plan.Lengths[rank]
	}
	if end != plan.Total {
		return api.Wrap(api.ErrCodeCollective, api.ErrNoLayout, "layout total disagrees with regions").
			WithContext("total", plan.Total).WithContext("regions_end", end)
	}
	return nil
}

// fromEach receives one frame from every participant concurrently. An abort
// frame from a participant fails the whole exchange.
func (c *coordinator) fromEach(ctx context.Context, fn func(ctx context.Context, rank int, f frame) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for rank := 1; rank < c.size; rank++ {
		peer := c.peers[rank]
		g.Go(func() error {
			f, err := peer.recv(gctx)
			if err != nil {
				return api.Wrap(api.ErrCodeCollective, err, "receive failed").WithContext("rank", rank)
			}
			if f.Kind == kindAbort {
				return api.Wrap(api.ErrCodeCollective, api.ErrAborted, "participant aborted").
					WithContext("rank", rank).WithContext("reason", f.Reason)
			}
			return fn(gctx, rank, f)
		})
	}
	return g.Wait()
}

func (c *coordinator) toEach(ctx context.Context, f frame) error {
	g, gctx := errgroup.WithContext(ctx)
	for rank := 1; rank < c.size; rank++ {
		peer := c.peers[rank]
		g.Go(func() error {
			if err := peer.send(gctx, f); err != nil {
				return api.Wrap(api.ErrCodeCollective, err, "send failed").WithContext("rank", rank)
			}
			return nil
		})
	}
	return g.Wait()
}

// fail marks the run failed and tells every participant before returning err.
func (c *coordinator) fail(err error) error {
	c.Abort(err)
	return err
}

func (c *coordinator) Abort(cause error) {
	if c.stage == stageFailed {
		return
	}
	c.stage = stageFailed
	reason := "coordinator failed"
	if cause != nil {
		reason = cause.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), abortGrace)
	defer cancel()
	for rank := 1; rank < c.size; rank++ {
		if c.peers[rank] == nil {
			continue
		}
		if err := c.peers[rank].send(ctx, frame{Kind: kindAbort, Reason: reason}); err != nil {
			c.logger.Debug("abort not delivered", "peer", rank, "error", err)
		}
	}
}

func (c *coordinator) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		for rank := 1; rank < c.size; rank++ {
			if c.peers[rank] == nil {
				continue
			}
			if err := c.peers[rank].close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (c *coordinator) outOfOrder(op string) error {
	return api.NewError(api.ErrCodeCollective, op+" called out of order").
		WithContext("stage", int(c.stage))
}

func unexpected(rank int, want kind, got frame) error {
	return api.Wrap(api.ErrCodeCollective, api.ErrUnexpectedFrame, "protocol violation").
		WithContext("rank", rank).WithContext("want", want.String()).WithContext("got", got.Kind.String())
}

func mismatch(rank, want, got int) error {
	return api.Wrap(api.ErrCodeCollective, api.ErrLengthMismatch, "payload rejected").
		WithContext("rank", rank).WithContext("want", want).WithContext("got", got)
}
