package socket

import (
	"context"
	"fmt"
	"net"

	"github.com/kleeedolinux/easysocket/socket/transport"
)

// DialTCP connects to addr and wraps the stream.
func DialTCP(ctx context.Context, addr string, opts ...SocketOption) (*Socket, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}
	return NewTCPSocket(conn, opts...), nil
}

// DialWS performs a WebSocket handshake against url.
func DialWS(ctx context.Context, url string, opts ...SocketOption) (*Socket, error) {
	cfg := newSocketConfig(opts)
	conn, err := transport.DialWebSocket(ctx, url, cfg.wsOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial ws %s: %w", url, err)
	}
	return newSocket(conn, cfg), nil
}

// SendUDP sends event as one datagram to addr from an ephemeral socket.
func SendUDP(ctx context.Context, addr string, event Event) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("dial udp %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(event)); err != nil {
		return fmt.Errorf("send udp %s: %w", addr, err)
	}
	return nil
}
