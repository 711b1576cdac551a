package socket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/kleeedolinux/easysocket/debug"
	"github.com/kleeedolinux/easysocket/socket/transport"
)

// Socket owns one transport handle and the handlers registered on it.
type Socket struct {
	id       int32
	conn     transport.Conn
	handlers *Registry[Handler]
	codec    Codec
	metrics  *Metrics
	ctx      context.Context
	closed   atomic.Bool
	detached atomic.Bool
}

type SocketOption func(*socketConfig)

type socketConfig struct {
	codec      Codec
	metrics    *Metrics
	bufferSize int
	wsOpts     []transport.WebSocketOption
}

func WithSocketCodec(c Codec) SocketOption {
	return func(cfg *socketConfig) {
		cfg.codec = c
	}
}

func WithSocketMetrics(m *Metrics) SocketOption {
	return func(cfg *socketConfig) {
		cfg.metrics = m
	}
}

// WithSocketBufferSize sets the read size for stream and datagram transports.
func WithSocketBufferSize(size int) SocketOption {
	return func(cfg *socketConfig) {
		cfg.bufferSize = size
	}
}

func WithWebSocketOptions(opts ...transport.WebSocketOption) SocketOption {
	return func(cfg *socketConfig) {
		cfg.wsOpts = append(cfg.wsOpts, opts...)
	}
}

func newSocketConfig(opts []SocketOption) socketConfig {
	cfg := socketConfig{
		codec:      RawCodec{},
		bufferSize: transport.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewSocket wraps conn. The id derives from conn.Addr().
func NewSocket(conn transport.Conn, opts ...SocketOption) *Socket {
	return newSocket(conn, newSocketConfig(opts))
}

func newSocket(conn transport.Conn, cfg socketConfig) *Socket {
	s := &Socket{
		id:       StableID(conn.Addr()),
		conn:     conn,
		handlers: NewRegistry[Handler](),
		codec:    cfg.codec,
		metrics:  cfg.metrics,
		ctx:      context.Background(),
	}
	debug.Printf("Socket %d: created over %s (%s)", s.id, conn.Kind(), conn.Addr())
	return s
}

func NewTCPSocket(conn net.Conn, opts ...SocketOption) *Socket {
	cfg := newSocketConfig(opts)
	return newSocket(transport.NewTCPConn(conn, cfg.bufferSize), cfg)
}

// NewUDPSocket wraps a bound datagram socket. Closing the socket leaves conn
// open.
func NewUDPSocket(conn net.PacketConn, opts ...SocketOption) *Socket {
	cfg := newSocketConfig(opts)
	return newSocket(transport.NewUDPConn(conn, cfg.bufferSize, false), cfg)
}

func NewWSSocket(conn *websocket.Conn, opts ...SocketOption) *Socket {
	cfg := newSocketConfig(opts)
	return newSocket(transport.NewWSConn(conn, 0), cfg)
}

func (s *Socket) ID() int32 {
	return s.id
}

func (s *Socket) Transport() transport.Kind {
	return s.conn.Kind()
}

func (s *Socket) Addr() string {
	return s.conn.Addr()
}

// Context is done when the server that produced the socket stops. Dialed
// sockets return context.Background().
func (s *Socket) Context() context.Context {
	return s.ctx
}

// Detach keeps a server from closing the socket once the connection
// handler returns. Handlers that hand the socket to another goroutine call
// it and take over closing.
func (s *Socket) Detach() {
	s.detached.Store(true)
}

// Conn exposes the owned transport handle.
func (s *Socket) Conn() transport.Conn {
	return s.conn
}

// On registers h for event, replacing any earlier handler. A nil h removes
// the registration.
func (s *Socket) On(event Event, h Handler) {
	if h == nil {
		s.Off(event)
		return
	}
	debug.Printf("Socket %d: registering handler for event: %s", s.id, event)
	s.handlers.Register(event, h)
}

func (s *Socket) Off(event Event) {
	debug.Printf("Socket %d: removing handler for event: %s", s.id, event)
	s.handlers.Remove(event)
}

// Emit writes event as a compat message: its text is both the event name
// and the payload.
func (s *Socket) Emit(event Event) error {
	return s.EmitMessage(CompatMessage(event))
}

func (s *Socket) EmitMessage(msg Message) error {
	if s.closed.Load() {
		return ErrConnectionClosed
	}
	if s.conn.Kind() == transport.KindUDP {
		return ErrUnsupported
	}

	data, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}

	debug.Printf("Socket %d: emitting %q", s.id, msg.Kind)
	if err := s.conn.Write(data); err != nil {
		return fmt.Errorf("socket %d: write: %w", s.id, err)
	}
	s.metrics.send(string(s.conn.Kind()))
	return nil
}

// Listen performs exactly one read and dispatches what it got. A peer
// close is reported as io.EOF. An unmatched message is not an error.
func (s *Socket) Listen(ctx context.Context) error {
	if s.closed.Load() {
		return ErrConnectionClosed
	}

	kind := string(s.conn.Kind())
	data, err := s.conn.Read(ctx)
	if err != nil {
		switch {
		case errors.Is(err, io.EOF), peerClosed(err):
			s.metrics.drop(kind, DropClosed)
			return io.EOF
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, transport.ErrReadUnsupported):
			return ErrUnsupported
		}
		s.metrics.drop(kind, DropReadError)
		return fmt.Errorf("socket %d: read: %w", s.id, err)
	}

	_, err = s.Dispatch(data)
	return err
}

// ListenTCP is Listen for stream sockets.
func (s *Socket) ListenTCP(ctx context.Context) error {
	return s.Listen(ctx)
}

// Dispatch decodes data and invokes the matching handlers. On
// message-oriented transports the "message" handler fires first, then the
// handler keyed by the message kind. It reports whether any handler ran.
func (s *Socket) Dispatch(data []byte) (bool, error) {
	kind := string(s.conn.Kind())
	s.metrics.receive(kind)

	msg, err := s.codec.Decode(data)
	if err != nil {
		s.metrics.drop(kind, DropDecode)
		debug.Printf("Socket %d: failed to decode message: %v", s.id, err)
		return false, err
	}

	payload := msg.Text()
	fired := false

	generic := s.conn.Kind().MessageOriented()
	if generic {
		if h, ok := s.handlers.Lookup(EventMessage); ok {
			h(payload)
			fired = true
		}
	}
	if !generic || msg.Kind != EventMessage {
		if h, ok := s.handlers.Lookup(msg.Kind); ok {
			h(payload)
			fired = true
		}
	}

	if !fired {
		s.metrics.drop(kind, DropUnmatched)
		debug.Printf("Socket %d: no handler for event: %q", s.id, msg.Kind)
	}
	return fired, nil
}

// Run listens until the peer closes, the conn is closed, ctx is done or a
// read fails. Datagram read errors and undecodable messages are skipped.
func (s *Socket) Run(ctx context.Context) error {
	for {
		err := s.Listen(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrInvalidMessage):
		case errors.Is(err, ErrConnectionClosed),
			errors.Is(err, net.ErrClosed),
			errors.Is(err, transport.ErrClosed):
			return nil
		case errors.Is(err, ErrUnsupported):
			return err
		case s.conn.Kind() == transport.KindUDP:
			debug.Printf("Socket %d: skipping datagram read error: %v", s.id, err)
		default:
			return err
		}
	}
}

// LatestMessage reads the stream until the peer closes it and returns the
// last non-empty line.
func (s *Socket) LatestMessage(ctx context.Context) (string, error) {
	if s.conn.Kind().MessageOriented() {
		return "", ErrUnsupported
	}

	var buf bytes.Buffer
	for {
		data, err := s.conn.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return latestLine(buf.Bytes()), nil
			}
			return "", err
		}
		s.metrics.receive(string(s.conn.Kind()))
		buf.Write(data)
	}
}

func peerClosed(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	debug.Printf("Socket %d: closing connection", s.id)
	return s.conn.Close()
}

func (s *Socket) IsClosed() bool {
	return s.closed.Load()
}
