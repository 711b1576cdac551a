package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kleeedolinux/easysocket/debug"
)

// WSConn wraps an established WebSocket connection. Each Write is one text
// frame and each Read returns one whole text frame.
type WSConn struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	addr         string
	writeTimeout time.Duration
	closed       bool
}

type WebSocketOption func(*webSocketConfig)

type webSocketConfig struct {
	headers          http.Header
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	compression      bool
}

func WithHeaders(headers http.Header) WebSocketOption {
	return func(c *webSocketConfig) {
		c.headers = headers
	}
}

func WithHandshakeTimeout(timeout time.Duration) WebSocketOption {
	return func(c *webSocketConfig) {
		c.handshakeTimeout = timeout
	}
}

func WithWriteTimeout(timeout time.Duration) WebSocketOption {
	return func(c *webSocketConfig) {
		c.writeTimeout = timeout
	}
}

func WithCompression(enabled bool) WebSocketOption {
	return func(c *webSocketConfig) {
		c.compression = enabled
	}
}

func defaultWebSocketConfig() webSocketConfig {
	return webSocketConfig{
		headers:          make(http.Header),
		handshakeTimeout: 10 * time.Second,
		writeTimeout:     10 * time.Second,
	}
}

// NewWSConn wraps a connection that already completed its handshake.
func NewWSConn(conn *websocket.Conn, writeTimeout time.Duration) *WSConn {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &WSConn{
		conn:         conn,
		addr:         addr,
		writeTimeout: writeTimeout,
	}
}

// DialWebSocket performs the client handshake against url.
func DialWebSocket(ctx context.Context, url string, opts ...WebSocketOption) (*WSConn, error) {
	cfg := defaultWebSocketConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = cfg.handshakeTimeout
	dialer.EnableCompression = cfg.compression

	debug.Printf("WSConn: connecting to %s", url)

	conn, _, err := dialer.DialContext(ctx, url, cfg.headers)
	if err != nil {
		debug.Printf("WSConn: connection failed: %v", err)
		return nil, err
	}

	return NewWSConn(conn, cfg.writeTimeout), nil
}

// Read returns the next text frame. Binary frames are discarded.
func (t *WSConn) Read(ctx context.Context) ([]byte, error) {
	for {
		frameType, message, err := t.ReadFrame(ctx)
		if err != nil {
			return nil, err
		}
		if frameType == websocket.TextMessage {
			return message, nil
		}
		debug.Printf("WSConn %s: discarding non-text frame (type %d, %d bytes)", t.addr, frameType, len(message))
	}
}

// ReadFrame returns the next data frame with its gorilla frame type.
func (t *WSConn) ReadFrame(ctx context.Context) (int, []byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, nil, ErrClosed
	}
	t.mu.Unlock()

	stop, err := interruptible(ctx, t.conn)
	if err != nil {
		return 0, nil, err
	}

	frameType, message, err := t.conn.ReadMessage()
	stop()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		debug.Printf("WSConn %s: read error: %v", t.addr, err)
		return 0, nil, err
	}

	debug.Printf("WSConn %s: received frame: %s", t.addr, string(message))
	return frameType, message, nil
}

func (t *WSConn) Write(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}

	debug.Printf("WSConn %s: sending frame: %s", t.addr, string(data))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSConn) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	err := t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		debug.Printf("WSConn %s: error sending close frame: %v", t.addr, err)
	}

	return t.conn.Close()
}

func (t *WSConn) Kind() Kind {
	return KindWebSocket
}

func (t *WSConn) Addr() string {
	return t.addr
}

// Upgrader accepts any origin; callers needing origin checks pass their own.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  DefaultBufferSize,
	WriteBufferSize: DefaultBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
