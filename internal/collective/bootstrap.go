// File: internal/collective/bootstrap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package collective

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/momentics/hioload-placement/api"
	"github.com/momentics/hioload-placement/transport/tcp"
)

func newRunID() string { return uuid.NewString() }

// Acceptor is the coordinator's bootstrap endpoint.
type Acceptor struct {
	ln   *tcp.Listener
	opts Options
}

// Listen binds the coordinator address. Call Accept to wait for participants.
func Listen(opts Options) (*Acceptor, error) {
	opts.setDefaults()
	if err := validateTopology(opts.Rank, opts.Size); err != nil {
		return nil, err
	}
	if opts.Rank != CoordinatorRank {
		return nil, api.NewError(api.ErrCodeBootstrap, "only the coordinator listens").
			WithContext("rank", opts.Rank)
	}
	addr := opts.Listen
	if addr == "" {
		addr = opts.Coordinator
	}
	ln, err := tcp.Listen(addr)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeBootstrap, err, "cannot listen for participants")
	}
	opts.Logger.Debug("coordinator listening", "addr", ln.Addr(), "size", opts.Size)
	return &Acceptor{ln: ln, opts: opts}, nil
}

// Addr returns the bound address.
func (a *Acceptor) Addr() string { return a.ln.Addr() }

// Accept waits until every other rank has connected and said hello, then
// closes the listener. Connections that never produce a well-formed hello
// are dropped; a well-formed hello that contradicts the job (wrong size, job
// id or a duplicate rank) fails the bootstrap.
func (a *Acceptor) Accept(ctx context.Context) (Communicator, error) {
	defer a.ln.Close()

	c := newCoordinator(a.opts.Size, newRunID(), a.opts.Logger)
	joined := 1
	for joined < a.opts.Size {
		s, err := a.ln.Accept(ctx)
		if err != nil {
			_ = c.Close()
			return nil, api.Wrap(api.ErrCodeBootstrap, err, "waiting for participants").
				WithContext("joined", joined).WithContext("size", a.opts.Size)
		}
		rank, err := a.hello(ctx, s, c)
		if err != nil {
			var bad *api.Error
			if errors.As(err, &bad) && bad.Code == api.ErrCodeBootstrap {
				reject(s, err)
				c.Abort(err)
				_ = c.Close()
				return nil, err
			}
			a.opts.Logger.Warn("dropping connection without valid hello", "remote", s.RemoteAddr(), "error", err)
			_ = s.Close()
			continue
		}
		c.peers[rank] = tcpLink{s: s}
		joined++
		a.opts.Logger.Debug("participant joined", "peer", rank, "remote", s.RemoteAddr(), "joined", joined)
	}
	return c, nil
}

// hello reads and validates the first frame of a connection.
func (a *Acceptor) hello(ctx context.Context, s *tcp.Session, c *coordinator) (int, error) {
	hctx, cancel := context.WithTimeout(ctx, a.opts.HelloTimeout)
	defer cancel()

	var f frame
	if err := s.Recv(hctx, &f); err != nil {
		return 0, err
	}
	if f.Kind != kindHello {
		return 0, api.ErrUnexpectedFrame
	}
	switch {
	case f.Size != a.opts.Size:
		return 0, api.NewError(api.ErrCodeBootstrap, "participant disagrees on job size").
			WithContext("rank", f.Rank).WithContext("size", f.Size).WithContext("want", a.opts.Size)
	case f.JobID != a.opts.JobID:
		return 0, api.NewError(api.ErrCodeBootstrap, "participant belongs to another job").
			WithContext("rank", f.Rank).WithContext("job", f.JobID).WithContext("want", a.opts.JobID)
	case f.Rank <= CoordinatorRank || f.Rank >= a.opts.Size:
		return 0, api.NewError(api.ErrCodeBootstrap, "participant rank out of range").
			WithContext("rank", f.Rank).WithContext("size", a.opts.Size)
	case c.peers[f.Rank] != nil:
		return 0, api.NewError(api.ErrCodeBootstrap, "duplicate participant rank").
			WithContext("rank", f.Rank)
	}
	return f.Rank, nil
}

func reject(s *tcp.Session, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), abortGrace)
	defer cancel()
	_ = s.Send(ctx, frame{Kind: kindAbort, Reason: cause.Error()})
	_ = s.Close()
}

// Join dials the coordinator and introduces this participant.
func Join(ctx context.Context, opts Options) (Communicator, error) {
	opts.setDefaults()
	if err := validateTopology(opts.Rank, opts.Size); err != nil {
		return nil, err
	}
	if opts.Rank == CoordinatorRank {
		return nil, api.NewError(api.ErrCodeBootstrap, "the coordinator does not join")
	}
	s, err := tcp.Dial(ctx, opts.Coordinator, opts.ConnectTimeout)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeBootstrap, err, "cannot reach coordinator").
			WithContext("rank", opts.Rank).WithContext("coordinator", opts.Coordinator)
	}
	hello := frame{Kind: kindHello, Rank: opts.Rank, Size: opts.Size, JobID: opts.JobID}
	if err := s.Send(ctx, hello); err != nil {
		_ = s.Close()
		return nil, api.Wrap(api.ErrCodeBootstrap, err, "cannot introduce participant").
			WithContext("rank", opts.Rank)
	}
	opts.Logger.Debug("joined coordinator", "rank", opts.Rank, "coordinator", opts.Coordinator)
	return newParticipant(opts.Rank, opts.Size, tcpLink{s: s}, opts.Logger), nil
}
