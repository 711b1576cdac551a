package transport

import (
	"context"
	"net"
	"sync"

	"github.com/kleeedolinux/easysocket/debug"
)

// TCPConn wraps a connected stream. Reads are unframed: whatever one read
// returns, up to the buffer size, is treated as a complete message.
type TCPConn struct {
	conn       net.Conn
	bufferSize int
	addr       string

	wmu sync.Mutex
}

func NewTCPConn(conn net.Conn, bufferSize int) *TCPConn {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &TCPConn{
		conn:       conn,
		bufferSize: bufferSize,
		addr:       addr,
	}
}

func (c *TCPConn) Read(ctx context.Context) ([]byte, error) {
	stop, err := interruptible(ctx, c.conn)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, c.bufferSize)
	var n int
	for n == 0 && err == nil {
		// an empty read carries no message; wait for bytes or an error
		n, err = c.conn.Read(buf)
	}
	stop()

	if ctxErr := ctx.Err(); ctxErr != nil && n == 0 {
		return nil, ctxErr
	}
	if n > 0 {
		debug.Printf("TCPConn %s: read %d bytes", c.addr, n)
		return buf[:n], nil
	}
	return nil, err
}

func (c *TCPConn) Write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	debug.Printf("TCPConn %s: writing %d bytes", c.addr, len(data))
	_, err := c.conn.Write(data)
	return err
}

func (c *TCPConn) Close() error {
	return c.conn.Close()
}

func (c *TCPConn) Kind() Kind {
	return KindTCP
}

func (c *TCPConn) Addr() string {
	return c.addr
}

// NetConn exposes the underlying stream.
func (c *TCPConn) NetConn() net.Conn {
	return c.conn
}
