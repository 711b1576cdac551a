// Package transport holds the three connection kinds a socket can own:
// a TCP stream, a bound UDP socket and a WebSocket connection.
package transport

import (
	"context"
	"errors"
	"time"
)

// Kind names a transport variant.
type Kind string

const (
	KindTCP       Kind = "tcp"
	KindUDP       Kind = "udp"
	KindWebSocket Kind = "ws"
)

// DefaultBufferSize caps a single stream or datagram read.
const DefaultBufferSize = 1024

var (
	ErrWriteUnsupported = errors.New("transport: write unsupported on bound datagram conn")
	ErrClosed           = errors.New("transport: closed")
	ErrReadUnsupported  = errors.New("transport: read unsupported on served datagram conn")
)

// Conn is a single owned transport handle.
type Conn interface {
	// Read performs exactly one blocking read. A done ctx unblocks it.
	Read(ctx context.Context) ([]byte, error)

	// Write sends data as one write call or one text frame.
	Write(data []byte) error

	Close() error

	Kind() Kind

	// Addr is the address string the stable socket id derives from.
	Addr() string
}

// MessageOriented reports whether reads on k preserve message boundaries.
func (k Kind) MessageOriented() bool {
	return k == KindUDP || k == KindWebSocket
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

var aLongTimeAgo = time.Unix(1, 0)

// interruptible clears any stale deadline on d and arranges for a pending
// read to fail as soon as ctx is done. The returned func must be called once
// the read returns.
func interruptible(ctx context.Context, d readDeadliner) (stop func() bool, err error) {
	if err := d.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}
	if ctx.Done() == nil {
		return func() bool { return true }, nil
	}
	return context.AfterFunc(ctx, func() {
		_ = d.SetReadDeadline(aLongTimeAgo)
	}), nil
}
