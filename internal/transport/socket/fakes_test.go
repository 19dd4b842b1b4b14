package socket

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/kvwire-go/internal/core/domain"
)

// closeLog records the order in which fake conns are closed.
type closeLog struct {
	mu    sync.Mutex
	order []string
}

func (l *closeLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, name)
}

func (l *closeLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

type stubConn struct {
	name   string
	log    *closeLog
	closes atomic.Int32
}

func newStubConn(name string, log *closeLog) *stubConn {
	return &stubConn{name: name, log: log}
}

func (c *stubConn) Read([]byte) (int, error)         { return 0, io.EOF }
func (c *stubConn) Write(b []byte) (int, error)      { return len(b), nil }
func (c *stubConn) LocalAddr() net.Addr              { return nil }
func (c *stubConn) RemoteAddr() net.Addr             { return nil }
func (c *stubConn) SetDeadline(time.Time) error      { return nil }
func (c *stubConn) SetReadDeadline(time.Time) error  { return nil }
func (c *stubConn) SetWriteDeadline(time.Time) error { return nil }

func (c *stubConn) Close() error {
	if c.closes.Add(1) > 1 {
		return net.ErrClosed
	}
	if c.log != nil {
		c.log.add(c.name)
	}
	return nil
}

type stubSession struct {
	*stubConn
}

func (s *stubSession) ConnectionState() tls.ConnectionState {
	return tls.ConnectionState{
		Version:           tls.VersionTLS13,
		CipherSuite:       tls.TLS_AES_128_GCM_SHA256,
		HandshakeComplete: true,
	}
}

// closingSession behaves like tls.Conn after a peer reset: its Close
// closes the transport and still reports the undelivered close_notify.
type closingSession struct {
	*stubSession
	raw *stubConn
	err error
}

func (s *closingSession) Close() error {
	_ = s.stubConn.Close()
	_ = s.raw.Close()
	return s.err
}

type fakeResolver struct {
	addrs []string
	err   error
	calls atomic.Int32
}

func (r *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	r.calls.Add(1)
	return r.addrs, r.err
}

// fakeDialer returns scripted results in order; the last one repeats.
type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	addrs   []string
}

type dialResult struct {
	conn net.Conn
	err  error
}

func (d *fakeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addrs = append(d.addrs, address)
	i := len(d.addrs) - 1
	if i >= len(d.results) {
		i = len(d.results) - 1
	}
	r := d.results[i]
	return r.conn, r.err
}

func (d *fakeDialer) calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addrs...)
}

// blockingDialer blocks until the context is done.
type blockingDialer struct {
	entered chan struct{}
	once    sync.Once
}

func newBlockingDialer() *blockingDialer {
	return &blockingDialer{entered: make(chan struct{})}
}

func (d *blockingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.once.Do(func() { close(d.entered) })
	<-ctx.Done()
	return nil, ctx.Err()
}

// redirectDialer dials target no matter what address is requested.
type redirectDialer struct {
	target string
	mu     sync.Mutex
	asked  []string
	conns  []*trackedConn
}

func (d *redirectDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, network, d.target)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.asked = append(d.asked, address)
	if err != nil {
		return nil, err
	}
	tc := &trackedConn{Conn: conn}
	d.conns = append(d.conns, tc)
	return tc, nil
}

type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

type fakeHandshaker struct {
	session Session
	err     error
	mu      sync.Mutex
	configs []*tls.Config
	rawOpen []bool
}

func (h *fakeHandshaker) Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.configs = append(h.configs, config)
	if sc, ok := conn.(*stubConn); ok {
		h.rawOpen = append(h.rawOpen, sc.closes.Load() == 0)
	}
	return h.session, h.err
}

type observation struct {
	endpoint string
	err      error
	closed   bool
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingObserver) ObserveEstablish(ep domain.Endpoint, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{endpoint: ep.String(), err: err})
}

func (o *recordingObserver) ObserveClose(ep domain.Endpoint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{endpoint: ep.String(), closed: true})
}

func (o *recordingObserver) get() []observation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]observation(nil), o.obs...)
}
