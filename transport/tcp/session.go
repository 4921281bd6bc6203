// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-placement/internal/codec"
)

// expired is a deadline in the past, used to abort a blocked read or write.
var expired = time.Unix(1, 0)

// ErrFrameTooLarge is returned by Recv when a frame exceeds the session's budget.
var ErrFrameTooLarge = errors.New("tcp: frame exceeds size limit")

// budgetReader stops yielding bytes once left reaches zero. The decoder may
// read ahead into the next frame, so the bound is per Recv, not exact.
type budgetReader struct {
	r    io.Reader
	left int64
}

func (b *budgetReader) Read(p []byte) (int, error) {
	if b.left <= 0 {
		return 0, ErrFrameTooLarge
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.r.Read(p)
	b.left -= int64(n)
	return n, err
}

// Session is one framed, bidirectional CBOR stream.
type Session struct {
	conn     net.Conn
	in       *budgetReader
	enc      *codec.Encoder
	dec      *codec.Decoder
	maxFrame int64

	sendMu sync.Mutex
	recvMu sync.Mutex
}

// NewSession wraps an established connection.
func NewSession(conn net.Conn) *Session {
	in := &budgetReader{r: conn}
	return &Session{
		conn:     conn,
		in:       in,
		enc:      codec.NewEncoder(conn),
		dec:      codec.NewDecoder(in),
		maxFrame: codec.MaxFrame,
	}
}

// RemoteAddr returns the peer address for logging.
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

// Send encodes v as one frame. A cancelled ctx aborts a blocked write and
// leaves the session unusable.
func (s *Session) Send(ctx context.Context, v any) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetWriteDeadline(expired)
	})
	defer stop()

	if err := s.enc.Encode(v); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrapf(err, "tcp: send to %s", s.RemoteAddr())
	}
	return nil
}

// Recv decodes the next frame into v. A cancelled ctx aborts a blocked read
// and leaves the session unusable, as does a frame larger than the budget.
func (s *Session) Recv(ctx context.Context, v any) error {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	s.in.left = s.maxFrame
	_ = s.conn.SetReadDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(expired)
	})
	defer stop()

	if err := s.dec.Decode(v); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrapf(err, "tcp: receive from %s", s.RemoteAddr())
	}
	return nil
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
