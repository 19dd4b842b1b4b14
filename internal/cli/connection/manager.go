// Package connection opens and tracks the kvwire-cli connection to a
// key-value server.
package connection

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/kvwire-go/internal/cli/config"
	"github.com/yndnr/kvwire-go/internal/client"
	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/infra/tlsroots"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
	"github.com/yndnr/kvwire-go/internal/transport/socket"
)

// Manager builds connections from a ClientConfig and holds the current
// one.
type Manager struct {
	cfg        *config.ClientConfig
	log        logger.Logger
	observer   socket.Observer
	socketOpts []socket.Option
	newWrapper func(domain.Endpoint, ...socket.Option) (socket.Wrapper, error)

	mu      sync.Mutex
	current *Connection
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger passed down to the socket and client.
func WithLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithObserver sets the establishment observer, normally the metric
// observer.
func WithObserver(obs socket.Observer) ManagerOption {
	return func(m *Manager) {
		m.observer = obs
	}
}

// WithSocketOptions appends raw socket options, applied after the ones
// derived from the config.
func WithSocketOptions(opts ...socket.Option) ManagerOption {
	return func(m *Manager) {
		m.socketOpts = append(m.socketOpts, opts...)
	}
}

// WithWrapperFactory replaces socket.New, e.g. with a test substitute.
func WithWrapperFactory(fn func(domain.Endpoint, ...socket.Option) (socket.Wrapper, error)) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newWrapper = fn
		}
	}
}

// NewManager creates a connection manager for cfg.
func NewManager(cfg *config.ClientConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg: cfg,
		log: logger.Default(),
		newWrapper: func(ep domain.Endpoint, opts ...socket.Option) (socket.Wrapper, error) {
			return socket.New(ep, opts...)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connection is one established connection.
type Connection struct {
	Endpoint    domain.Endpoint
	Client      *client.Client
	Established time.Time
	Elapsed     time.Duration

	wrapper socket.Wrapper
	certs   *tlsroots.Watcher
}

// Wrapper returns the underlying connection wrapper.
func (c *Connection) Wrapper() socket.Wrapper {
	return c.wrapper
}

// ID returns the wrapper's connection ID, or "" for wrappers without one.
func (c *Connection) ID() string {
	if w, ok := c.wrapper.(interface{ ID() string }); ok {
		return w.ID()
	}
	return ""
}

// Close closes the client and stops the certificate watcher.
func (c *Connection) Close() error {
	if c.certs != nil {
		c.certs.Stop()
	}
	return c.Client.Close()
}

// Connect establishes a new connection and makes it current. It fails
// with domain.ErrAlreadyEstablished while another connection is open.
func (m *Manager) Connect(ctx context.Context) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, domain.ErrAlreadyEstablished
	}

	ep, err := m.cfg.EndpointTarget()
	if err != nil {
		return nil, err
	}

	tlsCfg, certs, err := m.cfg.BuildTLSConfig(m.log)
	if err != nil {
		return nil, err
	}
	if certs != nil {
		certs.StartAsync()
	}

	opts := []socket.Option{
		socket.WithConnectTimeout(m.cfg.Timeouts.Connect),
		socket.WithHandshakeTimeout(m.cfg.Timeouts.Handshake),
		socket.WithTLSConfig(tlsCfg),
		socket.WithLogger(m.log),
		socket.WithObserver(m.observer),
	}
	opts = append(opts, m.socketOpts...)

	w, err := m.newWrapper(ep, opts...)
	if err != nil {
		stopWatcher(certs)
		return nil, err
	}

	c := client.New(w,
		client.WithLogger(m.log),
		client.WithRequestTimeout(m.cfg.Timeouts.Request),
	)

	start := time.Now()
	if err := c.Connect(ctx); err != nil {
		_ = c.Close()
		stopWatcher(certs)
		return nil, err
	}

	conn := &Connection{
		Endpoint:    ep,
		Client:      c,
		Established: start,
		Elapsed:     time.Since(start),
		wrapper:     w,
		certs:       certs,
	}
	m.current = conn
	return conn, nil
}

// Disconnect closes the current connection, if any.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	conn := m.current
	m.current = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Current returns the current connection or nil.
func (m *Manager) Current() *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsConnected reports whether a connection is open.
func (m *Manager) IsConnected() bool {
	return m.Current() != nil
}

func stopWatcher(w *tlsroots.Watcher) {
	if w != nil {
		w.Stop()
	}
}
