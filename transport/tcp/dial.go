// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

const (
	dialAttemptTimeout = 2 * time.Second
	dialInterval       = 100 * time.Millisecond
)

// Dial connects to the coordinator. Participants may start before the
// coordinator has bound its socket, so refused connections are re-attempted
// at a fixed interval until wait has elapsed. This only covers bootstrap;
// frames sent on the returned session are never re-sent.
func Dial(ctx context.Context, addr string, wait time.Duration) (*Session, error) {
	deadline := time.Now().Add(wait)
	d := net.Dialer{Timeout: dialAttemptTimeout}
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetNoDelay(true)
			}
			return NewSession(conn), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !time.Now().Before(deadline) {
			return nil, errors.Wrapf(err, "tcp: coordinator %s unreachable after %s", addr, wait)
		}
		t := time.NewTimer(dialInterval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
}
