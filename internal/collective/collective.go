// File: internal/collective/collective.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package collective

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/momentics/hioload-placement/internal/layout"
)

// CoordinatorRank is the participant that plans and reports.
const CoordinatorRank = 0

// Counts is the result of the size exchange. Vector and Total are only
// populated on the coordinator.
type Counts struct {
	RunID  string
	Vector []int
	Total  int
}

// Communicator is one participant's handle on the job.
type Communicator interface {
	Rank() int
	Size() int
	IsCoordinator() bool

	// GatherCounts is the size exchange. workers must be at least 1.
	GatherCounts(ctx context.Context, workers int) (Counts, error)

	// Gatherv is the variable-length collection. The coordinator must pass
	// the table planned from the vector GatherCounts returned; other
	// participants pass nil. The coordinator gets the assembled report,
	// everyone else gets nil.
	Gatherv(ctx context.Context, buf []byte, plan *layout.Table) ([]byte, error)

	// Abort tells the other side the run failed so nobody waits forever.
	Abort(cause error)

	io.Closer
}

// Options configures bootstrap of a Communicator.
type Options struct {
	Rank int
	Size int

	// Coordinator is the address the coordinator listens on and the other
	// participants dial.
	Coordinator string

	// Listen overrides the address the coordinator binds, e.g. ":7100" when
	// Coordinator names a host.
	Listen string

	// JobID, when set, must match between the coordinator and every participant.
	JobID string

	// ConnectTimeout bounds how long a participant waits for the coordinator
	// to start listening.
	ConnectTimeout time.Duration

	// HelloTimeout bounds how long the coordinator waits for the hello frame
	// on a freshly accepted connection.
	HelloTimeout time.Duration

	Logger *slog.Logger
}

const (
	defaultConnectTimeout = 30 * time.Second
	defaultHelloTimeout   = 5 * time.Second
	abortGrace            = time.Second
)

func (o *Options) setDefaults() {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.HelloTimeout <= 0 {
		o.HelloTimeout = defaultHelloTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Connect bootstraps the communicator for this process: a lone participant
// needs no network, rank 0 listens and waits for everybody, the rest dial in.
func Connect(ctx context.Context, opts Options) (Communicator, error) {
	opts.setDefaults()
	if err := validateTopology(opts.Rank, opts.Size); err != nil {
		return nil, err
	}
	switch {
	case opts.Size == 1:
		return Solo(opts.Logger), nil
	case opts.Rank == CoordinatorRank:
		acc, err := Listen(opts)
		if err != nil {
			return nil, err
		}
		return acc.Accept(ctx)
	default:
		return Join(ctx, opts)
	}
}
