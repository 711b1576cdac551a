package socket

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kleeedolinux/easysocket/socket/transport"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory transport.Conn with a configurable kind.
type fakeConn struct {
	kind  transport.Kind
	addr  string
	reads chan []byte

	mu      sync.Mutex
	written [][]byte
	readErr error
	closed  bool
}

func newFakeConn(kind transport.Kind, addr string) *fakeConn {
	return &fakeConn{
		kind:  kind,
		addr:  addr,
		reads: make(chan []byte, 10),
	}
}

func (f *fakeConn) Read(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	err := f.readErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	select {
	case data, ok := <-f.reads:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeConn) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) Kind() transport.Kind {
	return f.kind
}

func (f *fakeConn) Addr() string {
	return f.addr
}

func (f *fakeConn) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.written))
	for i, w := range f.written {
		out[i] = string(w)
	}
	return out
}

type datagram struct {
	data []byte
	from net.Addr
	err  error
}

// fakePacketConn serves queued datagrams and errors in order, then blocks
// until a past read deadline is set or it is closed.
type fakePacketConn struct {
	queue chan datagram
	local net.Addr

	once    sync.Once
	expired chan struct{}
}

func newFakePacketConn(items ...datagram) *fakePacketConn {
	q := make(chan datagram, len(items))
	for _, it := range items {
		q <- it
	}
	return &fakePacketConn{
		queue:   q,
		local:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999},
		expired: make(chan struct{}),
	}
}

func (f *fakePacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {
	case d := <-f.queue:
		if d.err != nil {
			return 0, nil, d.err
		}
		return copy(p, d.data), d.from, nil
	case <-f.expired:
		return 0, nil, os.ErrDeadlineExceeded
	}
}

func (f *fakePacketConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	return len(p), nil
}

func (f *fakePacketConn) Close() error {
	f.once.Do(func() { close(f.expired) })
	return nil
}

func (f *fakePacketConn) LocalAddr() net.Addr {
	return f.local
}

func (f *fakePacketConn) SetDeadline(t time.Time) error {
	return f.SetReadDeadline(t)
}

func (f *fakePacketConn) SetReadDeadline(t time.Time) error {
	if !t.IsZero() && t.Before(time.Now()) {
		f.once.Do(func() { close(f.expired) })
	}
	return nil
}

func (f *fakePacketConn) SetWriteDeadline(time.Time) error {
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry(), "test")
	require.NoError(t, err)
	return m
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
