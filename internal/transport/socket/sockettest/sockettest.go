// Package sockettest provides a scripted socket.Wrapper for engine tests.
//
// Substitute performs no I/O. Each Establish call consumes the next
// scripted Outcome while the state machine and error taxonomy follow
// socket.Socket exactly, so an engine under test cannot tell the two
// apart except by the results it was told to expect.
package sockettest

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"

	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/transport/socket"
)

// Method names recorded by Calls.
const (
	MethodEstablish       = "Establish"
	MethodTransportHandle = "TransportHandle"
	MethodTLSSession      = "TLSSession"
	MethodClose           = "Close"
)

// Names recorded by Released.
const (
	ReleasedSession   = "session"
	ReleasedTransport = "transport"
)

// Outcome is the scripted result of one Establish call.
type Outcome struct {
	conn    net.Conn
	session socket.Session
	err     error
}

// Succeed scripts a successful attempt handing out conn and, for a TLS
// attempt, session. A nil conn is replaced by one end of a net.Pipe; the
// other end is available through Peer.
func Succeed(conn net.Conn, session socket.Session) Outcome {
	return Outcome{conn: conn, session: session}
}

// Fail scripts a failed attempt returning err.
func Fail(err error) Outcome {
	if err == nil {
		err = domain.ErrConnect.WithDetails(domain.ReasonUnreachable)
	}
	return Outcome{err: err}
}

// Substitute implements socket.Wrapper from a script of outcomes. Once the
// script is exhausted the last outcome repeats. An empty script succeeds
// over a pipe.
type Substitute struct {
	mu       sync.Mutex
	script   []Outcome
	next     int
	resolves bool

	state   domain.State
	conn    net.Conn
	session socket.Session
	peer    net.Conn

	calls        []string
	results      []error
	handleCalls  int
	sessionCalls int
	closeCalls   int
	released     []string
}

var _ socket.Wrapper = (*Substitute)(nil)

// New returns a Substitute that plays outcomes in order.
func New(outcomes ...Outcome) *Substitute {
	return &Substitute{
		script: outcomes,
		state:  domain.StateUnestablished,
	}
}

// Establish implements socket.Wrapper.
func (s *Substitute) Establish(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, MethodEstablish)

	if err := s.state.CheckEstablish(); err != nil {
		s.results = append(s.results, err)
		return err
	}
	if err := ctx.Err(); err != nil {
		failure := s.contextFailure(err)
		s.state = domain.StateFailed
		s.results = append(s.results, failure)
		return failure
	}

	out := s.nextOutcome()
	if out.err != nil {
		s.state = domain.StateFailed
		s.results = append(s.results, out.err)
		return out.err
	}

	conn := out.conn
	if conn == nil {
		var peer net.Conn
		conn, peer = net.Pipe()
		s.peer = peer
	}
	s.conn = conn
	s.session = out.session
	s.state = domain.StateEstablished
	s.results = append(s.results, nil)
	return nil
}

// ForEndpoint makes a done context fail the way socket.Socket fails for
// ep: a host name stops in resolution, an IP literal in connect. Without
// it the Substitute behaves as for an IP literal.
func (s *Substitute) ForEndpoint(ep domain.Endpoint) *Substitute {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolves = !ep.IsIP()
	return s
}

func (s *Substitute) contextFailure(err error) *domain.DomainError {
	family := domain.ErrConnect
	if s.resolves {
		family = domain.ErrResolution
	}
	reason := domain.ReasonCanceled
	if errors.Is(err, context.DeadlineExceeded) {
		reason = domain.ReasonTimeout
	}
	return family.WithDetails(reason).WithCause(err)
}

func (s *Substitute) nextOutcome() Outcome {
	if len(s.script) == 0 {
		return Outcome{}
	}
	i := s.next
	if i >= len(s.script) {
		i = len(s.script) - 1
	} else {
		s.next++
	}
	return s.script[i]
}

// TransportHandle implements socket.Wrapper.
func (s *Substitute) TransportHandle() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, MethodTransportHandle)
	s.handleCalls++

	if err := s.state.CheckReadable(); err != nil {
		return nil, err
	}
	return s.conn, nil
}

// TLSSession implements socket.Wrapper.
func (s *Substitute) TLSSession() (socket.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, MethodTLSSession)
	s.sessionCalls++

	if err := s.state.CheckReadable(); err != nil {
		return nil, err
	}
	if s.session == nil {
		return nil, nil
	}
	return s.session, nil
}

// Close implements socket.Wrapper. The session is closed before the
// transport; a second Close is a no-op.
func (s *Substitute) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, MethodClose)
	s.closeCalls++

	if s.state == domain.StateClosed {
		return nil
	}
	prev := s.state
	s.state = domain.StateClosed
	if prev != domain.StateEstablished {
		return nil
	}

	var errs []error
	if s.session != nil {
		s.released = append(s.released, ReleasedSession)
		if err := s.session.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if s.conn != nil {
		s.released = append(s.released, ReleasedTransport)
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	s.conn, s.session = nil, nil
	return errors.Join(errs...)
}

// State returns the current lifecycle state.
func (s *Substitute) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Peer returns the far end of the pipe handed out by the most recent
// successful attempt that was scripted without a conn.
func (s *Substitute) Peer() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// EstablishCalls reports how many times Establish was invoked.
func (s *Substitute) EstablishCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Results returns what each Establish call returned, nil for success.
func (s *Substitute) Results() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.results...)
}

// TransportHandleCalls reports how many times TransportHandle was invoked.
func (s *Substitute) TransportHandleCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handleCalls
}

// TLSSessionCalls reports how many times TLSSession was invoked.
func (s *Substitute) TLSSessionCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionCalls
}

// CloseCalls reports how many times Close was invoked.
func (s *Substitute) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// Calls returns every method invocation in order.
func (s *Substitute) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Released returns the resources closed by Close, in order.
func (s *Substitute) Released() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.released...)
}

// Pipe returns both ends of an in-memory connection.
func Pipe() (client, server net.Conn) {
	return net.Pipe()
}

// NewSession wraps conn as a TLS session reporting state. Closing the
// session closes conn.
func NewSession(conn net.Conn, state tls.ConnectionState) socket.Session {
	return &session{Conn: conn, state: state}
}

type session struct {
	net.Conn
	state tls.ConnectionState
}

func (s *session) ConnectionState() tls.ConnectionState {
	return s.state
}
