// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp provides the coordinator-side listener.

package tcp

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// Listener accepts participant connections on the coordinator.
type Listener struct {
	ln *net.TCPListener
}

// Listen opens the TCP listening socket (e.g. ":7100", "10.0.0.1:7100", ":0").
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "tcp: listen on %s", addr)
	}
	return &Listener{ln: ln.(*net.TCPListener)}, nil
}

// Addr returns the bound address in host:port form.
func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

// Accept waits for the next connection. Cancelling ctx unblocks it.
func (l *Listener) Accept(ctx context.Context) (*Session, error) {
	_ = l.ln.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.SetDeadline(expired)
	})
	defer stop()

	conn, err := l.ln.AcceptTCP()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrap(err, "tcp: accept")
	}
	_ = conn.SetNoDelay(true)
	return NewSession(conn), nil
}

// Close stops accepting. Sessions already accepted stay open.
func (l *Listener) Close() error {
	return l.ln.Close()
}
