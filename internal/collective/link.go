// File: internal/collective/link.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package collective

import (
	"context"

	"github.com/momentics/hioload-placement/transport/tcp"
)

// link is a point-to-point frame channel between the coordinator and one
// participant.
type link interface {
	send(ctx context.Context, f frame) error
	recv(ctx context.Context) (frame, error)
	close() error
}

type tcpLink struct {
	s *tcp.Session
}

func (l tcpLink) send(ctx context.Context, f frame) error { return l.s.Send(ctx, f) }

func (l tcpLink) recv(ctx context.Context) (frame, error) {
	var f frame
	err := l.s.Recv(ctx, &f)
	return f, err
}

func (l tcpLink) close() error { return l.s.Close() }
