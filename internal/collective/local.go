// File: internal/collective/local.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// In-process fabric: each direction of a link is a FIFO mailbox.

package collective

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-placement/api"
)

// mailbox is an unbounded FIFO of frames with a single reader.
type mailbox struct {
	mu     sync.Mutex
	q      *queue.Queue
	ready  chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{q: queue.New(), ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(f frame) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	m.q.Add(f)
	m.mu.Unlock()
	m.wake()
	return nil
}

func (m *mailbox) take(ctx context.Context) (frame, error) {
	for {
		m.mu.Lock()
		if m.q.Length() > 0 {
			f := m.q.Remove().(frame)
			m.mu.Unlock()
			return f, nil
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return frame{}, io.EOF
		}
		select {
		case <-m.ready:
		case <-ctx.Done():
			return frame{}, ctx.Err()
		}
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wake()
}

func (m *mailbox) wake() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

type localLink struct {
	in  *mailbox
	out *mailbox
}

func (l localLink) send(ctx context.Context, f frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.out.put(f)
}

func (l localLink) recv(ctx context.Context) (frame, error) { return l.in.take(ctx) }

func (l localLink) close() error {
	l.out.close()
	return nil
}

// NewLocalGroup wires size in-process participants together. comms[i] has
// rank i; each must be driven by its own goroutine.
func NewLocalGroup(size int, logger *slog.Logger) ([]Communicator, error) {
	if err := validateTopology(0, size); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	coord := newCoordinator(size, newRunID(), logger)
	comms := make([]Communicator, size)
	comms[CoordinatorRank] = coord
	for r := 1; r < size; r++ {
		up, down := newMailbox(), newMailbox()
		coord.peers[r] = localLink{in: up, out: down}
		comms[r] = newParticipant(r, size, localLink{in: down, out: up}, logger)
	}
	return comms, nil
}

func validateTopology(rank, size int) error {
	if size < 1 {
		return api.NewError(api.ErrCodeBootstrap, "job size must be at least 1").
			WithContext("size", size)
	}
	if rank < 0 || rank >= size {
		return api.NewError(api.ErrCodeBootstrap, "rank out of range").
			WithContext("rank", rank).WithContext("size", size)
	}
	return nil
}
