package transport

import (
	"context"
	"net"

	"github.com/kleeedolinux/easysocket/debug"
)

// UDPConn wraps a bound datagram socket. It has no peer: every read may
// come from a different sender, and Write is not defined.
type UDPConn struct {
	conn       net.PacketConn
	bufferSize int
	addr       string
	owned      bool
	served     bool
}

// NewUDPConn wraps conn. When owned is false Close leaves conn open, so a
// server can hand the same bound socket to many sockets.
func NewUDPConn(conn net.PacketConn, bufferSize int, owned bool) *UDPConn {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	addr := ""
	if la := conn.LocalAddr(); la != nil {
		addr = la.String()
	}
	return &UDPConn{
		conn:       conn,
		bufferSize: bufferSize,
		addr:       addr,
		owned:      owned,
	}
}

// Served returns a view of c for code running under a receive loop that
// already owns c. Reads on the view fail with ErrReadUnsupported, since a
// second reader would move the deadline of the shared socket. Close on the
// view never closes the socket.
func (c *UDPConn) Served() *UDPConn {
	return &UDPConn{
		conn:       c.conn,
		bufferSize: c.bufferSize,
		addr:       c.addr,
		served:     true,
	}
}

func (c *UDPConn) Read(ctx context.Context) ([]byte, error) {
	data, _, err := c.ReadFrom(ctx)
	return data, err
}

// ReadFrom receives one datagram and its sender.
func (c *UDPConn) ReadFrom(ctx context.Context) ([]byte, net.Addr, error) {
	if c.served {
		return nil, nil, ErrReadUnsupported
	}

	stop, err := interruptible(ctx, c.conn)
	if err != nil {
		return nil, nil, err
	}

	buf := make([]byte, c.bufferSize)
	n, src, err := c.conn.ReadFrom(buf)
	stop()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, err
	}

	debug.Printf("UDPConn %s: received %d bytes from %v", c.addr, n, src)
	return buf[:n], src, nil
}

func (c *UDPConn) Write([]byte) error {
	return ErrWriteUnsupported
}

// WriteTo sends one datagram to addr from the bound socket.
func (c *UDPConn) WriteTo(data []byte, addr net.Addr) error {
	_, err := c.conn.WriteTo(data, addr)
	return err
}

func (c *UDPConn) Close() error {
	if !c.owned {
		return nil
	}
	return c.conn.Close()
}

func (c *UDPConn) Kind() Kind {
	return KindUDP
}

func (c *UDPConn) Addr() string {
	return c.addr
}
