// File: internal/collective/participant.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package collective

import (
	"context"
	"log/slog"
	"sync"

	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/internal/layout"
)

// participant is a non-coordinator rank with a single link to rank 0.
type participant struct {
	rank   int
	size   int
	up     link
	logger *slog.Logger

	stage     stage
	runID     string
	closeOnce sync.Once
}

func newParticipant(rank, size int, up link, logger *slog.Logger) *participant {
	return &participant{
		rank:   rank,
		size:   size,
		up:     up,
		logger: logger.With("rank", rank),
	}
}

func (p *participant) Rank() int           { return p.rank }
func (p *participant) Size() int           { return p.size }
func (p *participant) IsCoordinator() bool { return false }

func (p *participant) GatherCounts(ctx context.Context, workers int) (Counts, error) {
	if p.stage != stageBootstrapped {
		return Counts{}, p.outOfOrder("size exchange")
	}
	if workers < 1 {
		return Counts{}, api.NewError(api.ErrCodeConfig, "worker count must be at least 1").
			WithContext("workers", workers)
	}
	ack, err := p.exchange(ctx, frame{Kind: kindCount, Rank: p.rank, Count: workers}, kindCountsAck)
	if err != nil {
		return Counts{}, err
	}
	p.stage = stageCounted
	p.runID = ack.RunID
	p.logger.Debug("size exchange complete", "run", p.runID, "workers", workers)
	return Counts{RunID: ack.RunID}, nil
}

// Gatherv ships buf to the coordinator. plan is ignored off the coordinator.
func (p *participant) Gatherv(ctx context.Context, buf []byte, _ *layout.Table) ([]byte, error) {
	if p.stage != stageCounted {
		return nil, p.outOfOrder("collection")
	}
	if _, err := p.exchange(ctx, frame{Kind: kindPayload, Rank: p.rank, Payload: buf}, kindPayloadAck); err != nil {
		return nil, err
	}
	p.stage = stageCollected
	p.logger.Debug("collection complete", "run", p.runID, "bytes", len(buf))
	return nil, nil
}

// exchange sends f and blocks until the coordinator answers with want.
func (p *participant) exchange(ctx context.Context, f frame, want kind) (frame, error) {
	if err := p.up.send(ctx, f); err != nil {
		p.stage = stageFailed
		return frame{}, api.Wrap(api.ErrCodeCollective, err, "send to coordinator failed").
			WithContext("rank", p.rank).WithContext("frame", f.Kind.String())
	}
	reply, err := p.up.recv(ctx)
	if err != nil {
		p.stage = stageFailed
		return frame{}, api.Wrap(api.ErrCodeCollective, err, "receive from coordinator failed").
			WithContext("rank", p.rank).WithContext("want", want.String())
	}
	switch reply.Kind {
	case want:
		return reply, nil
	case kindAbort:
		p.stage = stageFailed
		return frame{}, api.Wrap(api.ErrCodeCollective, api.ErrAborted, "coordinator aborted the run").
			WithContext("rank", p.rank).WithContext("reason", reply.Reason)
	default:
		p.stage = stageFailed
		return frame{}, api.Wrap(api.ErrCodeCollective, api.ErrUnexpectedFrame, "protocol violation").
			WithContext("rank", p.rank).WithContext("want", want.String()).WithContext("got", reply.Kind.String())
	}
}

// Abort tells the coordinator this participant cannot continue.
func (p *participant) Abort(cause error) {
	if p.stage == stageFailed || p.stage == stageCollected {
		return
	}
	p.stage = stageFailed
	reason := "participant failed"
	if cause != nil {
		reason = cause.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), abortGrace)
	defer cancel()
	if err := p.up.send(ctx, frame{Kind: kindAbort, Rank: p.rank, Reason: reason}); err != nil {
		p.logger.Debug("abort not delivered", "error", err)
	}
}

func (p *participant) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.up.close() })
	return err
}

func (p *participant) outOfOrder(op string) error {
	return api.NewError(api.ErrCodeCollective, op+" called out of order").
		WithContext("rank", p.rank).WithContext("stage", int(p.stage))
}
