package socket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
	"github.com/yndnr/kvwire-go/internal/telemetry/tracer"
)

// Socket is the real Wrapper. It owns at most one transport connection
// and, for TLS endpoints, the session layered on it.
//
// Socket is not designed for concurrent Establish calls; the protocol
// engine serializes access. Its state is still guarded so that Close may
// interrupt an in-flight Establish.
type Socket struct {
	id       string
	endpoint domain.Endpoint
	opts     options
	log      logger.Logger

	mu     sync.Mutex
	state  domain.State
	res    *resources
	cancel context.CancelFunc // cancels the in-flight attempt
}

var _ Wrapper = (*Socket)(nil)

// New creates a Socket bound to ep. No I/O happens until Establish.
func New(ep domain.Endpoint, opts ...Option) (*Socket, error) {
	if err := ep.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id, err := domain.GenerateConnID()
	if err != nil {
		return nil, err
	}

	return &Socket{
		id:       id,
		endpoint: ep,
		opts:     o,
		log:      o.logger.With("conn_id", id, "endpoint", ep.String()),
		state:    domain.StateUnestablished,
	}, nil
}

// ID returns the connection ID used in logs.
func (s *Socket) ID() string {
	return s.id
}

// Endpoint returns the target this socket is bound to.
func (s *Socket) Endpoint() domain.Endpoint {
	return s.endpoint
}

// State returns the current lifecycle state.
func (s *Socket) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Establish implements Wrapper.
func (s *Socket) Establish(ctx context.Context) error {
	s.mu.Lock()
	if err := s.state.CheckEstablish(); err != nil {
		s.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.state = domain.StateEstablishing
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Debug("establishing connection", "tls", s.endpoint.UseTLS)
	start := time.Now()
	res, err := s.establish(ctx)
	elapsed := time.Since(start)

	s.mu.Lock()
	s.cancel = nil
	if s.state != domain.StateEstablishing {
		// Close ran while we were blocked; it already moved us to Closed.
		s.mu.Unlock()
		_ = res.release(s.log)
		closedErr := domain.ErrInvalidState.WithDetails(domain.ReasonClosedDuringSetup)
		if err != nil {
			closedErr = closedErr.WithCause(err)
		}
		s.log.Warn("connection closed during establishment", "elapsed", elapsed)
		s.opts.observer.ObserveEstablish(s.endpoint, elapsed, closedErr)
		return closedErr
	}
	if err != nil {
		s.state = domain.StateFailed
		s.mu.Unlock()
		s.log.Warn("establish failed",
			"code", domain.GetErrorCode(err),
			"reason", domain.Reason(err),
			"elapsed", elapsed,
			"error", err,
		)
		s.opts.observer.ObserveEstablish(s.endpoint, elapsed, err)
		return err
	}
	s.res = res
	s.state = domain.StateEstablished
	s.mu.Unlock()

	args := []any{"remote_addr", addrString(res.raw.RemoteAddr()), "elapsed", elapsed}
	if res.session != nil {
		state := res.session.ConnectionState()
		args = append(args,
			"tls_version", tls.VersionName(state.Version),
			"cipher_suite", tls.CipherSuiteName(state.CipherSuite),
		)
	}
	s.log.Info("connection established", args...)
	s.opts.observer.ObserveEstablish(s.endpoint, elapsed, nil)
	return nil
}

// establish runs resolve, dial and handshake. On error nothing it opened
// is left open.
func (s *Socket) establish(ctx context.Context) (*resources, error) {
	connectCtx, cancel := context.WithTimeout(ctx, s.opts.connectTimeout)
	defer cancel()

	addrs, err := s.resolve(connectCtx)
	if err != nil {
		return nil, err
	}

	raw, err := s.dial(connectCtx, addrs)
	if err != nil {
		return nil, err
	}

	if !s.endpoint.UseTLS {
		return &resources{raw: raw}, nil
	}

	session, err := s.handshake(ctx, raw)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &resources{raw: raw, session: session}, nil
}

func (s *Socket) resolve(ctx context.Context) ([]string, error) {
	if s.endpoint.IsIP() {
		return []string{s.endpoint.Host}, nil
	}

	span := tracer.StartSpan(ctx, s.log, tracer.PhaseResolve)
	defer span.End()

	addrs, err := s.opts.resolver.LookupHost(ctx, s.endpoint.Host)
	if err != nil {
		err = classifyResolveError(err)
		span.RecordError(err)
		return nil, err
	}
	if len(addrs) == 0 {
		err = domain.ErrResolution.WithDetails(domain.ReasonNotFound)
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("addrs", len(addrs))
	return addrs, nil
}

// dial tries each resolved address in order until one connects. All of
// them share the connect deadline.
func (s *Socket) dial(ctx context.Context, addrs []string) (net.Conn, error) {
	port := strconv.Itoa(s.endpoint.Port)

	span := tracer.StartSpan(ctx, s.log, tracer.PhaseConnect)
	defer span.End()

	var lastErr error
	for _, addr := range addrs {
		conn, err := s.opts.dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		if err == nil {
			span.SetAttribute("addr", addr)
			return conn, nil
		}
		s.log.Debug("dial failed", "addr", addr, "error", err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	err := classifyConnectError(lastErr)
	span.RecordError(err)
	return nil, err
}

func (s *Socket) handshake(ctx context.Context, raw net.Conn) (Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.handshakeTimeout)
	defer cancel()

	span := tracer.StartSpan(ctx, s.log, tracer.PhaseHandshake)
	defer span.End()

	session, err := s.opts.handshaker.Handshake(ctx, raw, s.clientTLSConfig())
	if err != nil {
		err = classifyHandshakeError(err)
		span.RecordError(err)
		return nil, err
	}
	if session == nil {
		err = domain.ErrHandshake.WithDetails(domain.ReasonNegotiation)
		span.RecordError(err)
		return nil, err
	}
	return session, nil
}

func (s *Socket) clientTLSConfig() *tls.Config {
	var cfg *tls.Config
	if s.opts.tlsConfig != nil {
		cfg = s.opts.tlsConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = s.endpoint.Host
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}
	return cfg
}

// TransportHandle implements Wrapper.
func (s *Socket) TransportHandle() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.CheckReadable(); err != nil {
		return nil, err
	}
	return s.res.raw, nil
}

// TLSSession implements Wrapper.
func (s *Socket) TLSSession() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.CheckReadable(); err != nil {
		return nil, err
	}
	if s.res.session == nil {
		return nil, nil
	}
	return s.res.session, nil
}

// Close implements Wrapper. An in-flight Establish is cancelled and
// releases its own resources.
func (s *Socket) Close() error {
	s.mu.Lock()
	prev := s.state
	switch prev {
	case domain.StateClosed:
		s.mu.Unlock()
		return nil
	case domain.StateEstablishing:
		s.state = domain.StateClosed
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}
	res := s.res
	s.res = nil
	s.state = domain.StateClosed
	s.mu.Unlock()

	if prev != domain.StateEstablished {
		return nil
	}

	err := res.release(s.log)
	s.opts.observer.ObserveClose(s.endpoint)
	if err != nil {
		s.log.Warn("close failed", "error", err)
		return fmt.Errorf("socket: close: %w", err)
	}
	s.log.Debug("connection closed")
	return nil
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

// resources is what a successful attempt owns. The session never
// outlives raw.
type resources struct {
	raw     net.Conn
	session Session
}

// release closes the session before the transport. A transport already
// closed by the session's own Close is not an error, and neither is the
// session failing to deliver close_notify once it has closed the
// transport: a peer that reset the connection cannot receive it.
func (r *resources) release(log logger.Logger) error {
	if r == nil {
		return nil
	}

	var sessionErr error
	if r.session != nil {
		if err := r.session.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			sessionErr = err
		}
	}

	var errs []error
	if r.raw != nil {
		err := r.raw.Close()
		switch {
		case err == nil:
		case errors.Is(err, net.ErrClosed):
			if sessionErr != nil {
				log.Debug("tls close_notify not delivered", "error", sessionErr)
				sessionErr = nil
			}
		default:
			errs = append(errs, fmt.Errorf("transport: %w", err))
		}
	}
	if sessionErr != nil {
		errs = append([]error{fmt.Errorf("tls session: %w", sessionErr)}, errs...)
	}
	return errors.Join(errs...)
}
