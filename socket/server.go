package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kleeedolinux/easysocket/debug"
	"github.com/kleeedolinux/easysocket/socket/transport"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Server accepts peers on one transport at a time and hands each one to the
// "connection" handler.
type Server struct {
	handlers *Registry[ConnectionHandler]

	log      logrus.FieldLogger
	metrics  *Metrics
	codec    Codec
	upgrader websocket.Upgrader

	maxConcurrency int
	bufferSize     int
	writeTimeout   time.Duration
	shutdownGrace  time.Duration
	httpResponse   string
	wsReply        string

	active   atomic.Bool
	live     atomic.Int64
	inflight handlerGroup
}

type ServerOption func(*Server)

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		handlers:      NewRegistry[ConnectionHandler](),
		log:           debug.Logger(),
		codec:         RawCodec{},
		upgrader:      transport.Upgrader,
		bufferSize:    transport.DefaultBufferSize,
		writeTimeout:  10 * time.Second,
		shutdownGrace: 5 * time.Second,
		httpResponse:  "Hello, HTTP!",
		wsReply:       "Hello, WebSocket!",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WithMaxConcurrency lets up to n connection handlers run at once. With 0,
// the default, each handler must return before the next peer is accepted.
func WithMaxConcurrency(n int) ServerOption {
	return func(s *Server) {
		if n < 0 {
			n = 0
		}
		s.maxConcurrency = n
	}
}

func WithBufferSize(size int) ServerOption {
	return func(s *Server) {
		s.bufferSize = size
	}
}

func WithLogger(l logrus.FieldLogger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithCodec(c Codec) ServerOption {
	return func(s *Server) {
		s.codec = c
	}
}

func WithUpgrader(u websocket.Upgrader) ServerOption {
	return func(s *Server) {
		s.upgrader = u
	}
}

func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

func WithShutdownGrace(d time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownGrace = d
	}
}

// WithHTTPResponse sets the body returned to every HTTP request.
func WithHTTPResponse(body string) ServerOption {
	return func(s *Server) {
		s.httpResponse = body
	}
}

// WithWebSocketReply sets the frame the WebSocket responder sends when no
// connection handler is registered.
func WithWebSocketReply(text string) ServerOption {
	return func(s *Server) {
		s.wsReply = text
	}
}

// On registers a lifecycle handler. EventConnection is the only event a
// server fires.
func (s *Server) On(event Event, h ConnectionHandler) {
	if h == nil {
		s.handlers.Remove(event)
		return
	}
	s.log.WithField("event", event).Debug("registering server handler")
	s.handlers.Register(event, h)
}

// Count returns the number of sockets whose connection handler is running.
func (s *Server) Count() int {
	return int(s.live.Load())
}

func (s *Server) socketConfig() socketConfig {
	return socketConfig{
		codec:      s.codec,
		metrics:    s.metrics,
		bufferSize: s.bufferSize,
	}
}

func (s *Server) claim() error {
	if !s.active.CompareAndSwap(false, true) {
		return ErrListenerActive
	}
	return nil
}

func (s *Server) release() {
	s.inflight.drain()
	s.active.Store(false)
}

// limiter returns nil when handlers run inline on the accept loop.
func (s *Server) limiter() *semaphore.Weighted {
	if s.maxConcurrency == 0 {
		return nil
	}
	return semaphore.NewWeighted(int64(s.maxConcurrency))
}

// acquire takes a handler slot before the next accept or receive, so no
// further peer is taken while every slot is busy. It reports false once
// ctx is done.
func (s *Server) acquire(ctx context.Context, lim *semaphore.Weighted) bool {
	if lim == nil {
		return true
	}
	return lim.Acquire(ctx, 1) == nil
}

func (s *Server) unacquire(lim *semaphore.Weighted) {
	if lim != nil {
		lim.Release(1)
	}
}

// run executes fn inline or, with a limiter, on its own goroutine holding
// the slot taken by acquire.
func (s *Server) run(lim *semaphore.Weighted, fn func()) {
	if lim == nil {
		fn()
		return
	}
	if !s.inflight.join() {
		defer lim.Release(1)
		fn()
		return
	}
	go func() {
		defer s.inflight.leave()
		defer lim.Release(1)
		fn()
	}()
}

// handle invokes the connection handler for sock, then after, then closes
// sock unless the handler detached it.
func (s *Server) handle(sock *Socket, after func(*Socket)) {
	s.live.Add(1)
	defer s.live.Add(-1)

	kind := string(sock.Transport())
	s.metrics.connection(kind)

	log := s.log.WithFields(logrus.Fields{
		"transport": kind,
		"socket_id": sock.ID(),
		"remote":    sock.Addr(),
	})

	if h, ok := s.handlers.Lookup(EventConnection); ok {
		log.Debug("connection")
		s.invoke(log, h, sock)
	} else {
		log.Debug("connection without handler")
	}

	if after != nil {
		after(sock)
	}

	if !sock.detached.Load() {
		if err := sock.Close(); err != nil {
			log.WithError(err).Debug("error closing socket")
		}
	}
}

func (s *Server) invoke(log logrus.FieldLogger, h ConnectionHandler, sock *Socket) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("connection handler panicked")
		}
	}()
	h(sock)
}

// ListenTCP binds addr and serves it until ctx is done.
func (s *Server) ListenTCP(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	return s.ServeTCP(ctx, ln)
}

// ServeTCP accepts on ln until ctx is done or accept fails. It returns nil
// on cancellation and closes ln either way.
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	if err := s.claim(); err != nil {
		return err
	}
	defer s.release()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.log.WithFields(logrus.Fields{"transport": transport.KindTCP, "addr": ln.Addr().String()}).Info("listening")

	lim := s.limiter()
	cfg := s.socketConfig()
	for {
		if !s.acquire(ctx, lim) {
			return nil
		}
		conn, err := ln.Accept()
		if err != nil {
			s.unacquire(lim)
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept tcp: %w", err)
		}

		sock := newSocket(transport.NewTCPConn(conn, cfg.bufferSize), cfg)
		sock.ctx = ctx
		s.run(lim, func() { s.handle(sock, nil) })
	}
}

// ListenUDP binds addr and serves datagrams until ctx is done.
func (s *Server) ListenUDP(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", addr, err)
	}
	return s.ServeUDP(ctx, pc)
}

// ServeUDP fires the connection handler once per datagram with a socket
// over the bound conn, then dispatches the datagram on that socket. Every
// datagram shares one conn, so sockets are not isolated per peer. The
// receive loop is the only reader: Listen on these sockets returns
// ErrUnsupported.
func (s *Server) ServeUDP(ctx context.Context, pc net.PacketConn) error {
	defer pc.Close()
	if err := s.claim(); err != nil {
		return err
	}
	defer s.release()

	s.log.WithFields(logrus.Fields{"transport": transport.KindUDP, "addr": pc.LocalAddr().String()}).Info("listening")

	lim := s.limiter()
	cfg := s.socketConfig()
	shared := transport.NewUDPConn(pc, cfg.bufferSize, false)
	kind := string(transport.KindUDP)

	for {
		if !s.acquire(ctx, lim) {
			return nil
		}
		data, src, err := shared.ReadFrom(ctx)
		if err != nil {
			s.unacquire(lim)
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("receive udp: %w", err)
			}
			s.metrics.drop(kind, DropReadError)
			s.log.WithError(err).WithField("transport", kind).Debug("skipping failed receive")
			continue
		}

		sock := newSocket(shared.Served(), cfg)
		sock.ctx = ctx
		sender := src.String()
		s.run(lim, func() {
			s.handle(sock, func(sock *Socket) {
				_, _ = sock.Dispatch(data)
				s.log.WithFields(logrus.Fields{
					"transport": kind,
					"remote":    sender,
					"message":   decodeText(data),
				}).Info("received datagram")
			})
		})
	}
}

// ListenWS binds addr and serves WebSocket upgrades until ctx is done.
func (s *Server) ListenWS(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen ws %s: %w", addr, err)
	}
	return s.ServeWS(ctx, ln)
}

func (s *Server) ServeWS(ctx context.Context, ln net.Listener) error {
	return s.serveHTTP(ctx, ln, transport.KindWebSocket, s.WebSocketHandler())
}

// WebSocketHandler upgrades each request. With a connection handler
// registered the socket goes to it; otherwise one frame is read and
// answered with the configured reply.
func (s *Server) WebSocketHandler() http.Handler {
	n := s.maxConcurrency
	if n == 0 {
		n = 1
	}
	lim := semaphore.NewWeighted(int64(n))
	cfg := s.socketConfig()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// hijacked conns outlive http.Server.Shutdown, so release waits on them
		if !s.inflight.join() {
			http.Error(w, "server stopping", http.StatusServiceUnavailable)
			return
		}
		defer s.inflight.leave()

		if err := lim.Acquire(r.Context(), 1); err != nil {
			http.Error(w, "server stopping", http.StatusServiceUnavailable)
			return
		}
		defer lim.Release(1)

		log := s.log.WithFields(logrus.Fields{"transport": transport.KindWebSocket, "remote": r.RemoteAddr})

		c, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket handshake failed")
			return
		}
		conn := transport.NewWSConn(c, s.writeTimeout)

		if _, ok := s.handlers.Lookup(EventConnection); ok {
			sock := newSocket(conn, cfg)
			sock.ctx = r.Context()
			s.handle(sock, nil)
			return
		}

		s.respondWS(r.Context(), log, conn)
	})
}

// respondWS answers the first frame with the configured reply when it is a
// text frame, then closes.
func (s *Server) respondWS(ctx context.Context, log logrus.FieldLogger, conn *transport.WSConn) {
	defer conn.Close()

	frameType, data, err := conn.ReadFrame(ctx)
	if err != nil {
		log.WithError(err).Debug("websocket read failed")
		return
	}
	s.metrics.receive(string(transport.KindWebSocket))
	if frameType != websocket.TextMessage {
		s.metrics.drop(string(transport.KindWebSocket), DropDecode)
		log.WithField("frame_type", frameType).Debug("websocket frame is not text, not replying")
		return
	}
	log.WithField("message", decodeText(data)).Info("websocket received")

	if err := conn.Write([]byte(s.wsReply)); err != nil {
		log.WithError(err).Debug("websocket reply failed")
		return
	}
	s.metrics.send(string(transport.KindWebSocket))
}

// serveHTTP runs handler on ln until ctx is done. Request contexts derive
// from ctx so hijacked WebSocket connections see the cancellation too.
func (s *Server) serveHTTP(ctx context.Context, ln net.Listener, kind transport.Kind, handler http.Handler) error {
	if err := s.claim(); err != nil {
		ln.Close()
		return err
	}
	defer s.release()

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	s.log.WithFields(logrus.Fields{"transport": kind, "addr": ln.Addr().String()}).Info("listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", kind, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("shutdown incomplete")
			srv.Close()
		}
		<-errCh
		return nil
	}
}
