// Package client is a key-value protocol engine speaking RESP over a
// socket.Wrapper.
//
// The client never constructs its own connection: it receives a Wrapper
// and drives it through Establish, TLSSession or TransportHandle, and
// Close. It never retries a failed establishment; callers decide.
package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
	"github.com/yndnr/kvwire-go/internal/transport/socket"
	"github.com/yndnr/kvwire-go/pkg/resp"
)

// DefaultRequestTimeout bounds a command when ctx has no deadline.
const DefaultRequestTimeout = 5 * time.Second

type options struct {
	logger         logger.Logger
	requestTimeout time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRequestTimeout bounds each command when ctx carries no deadline.
// Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.requestTimeout = d
		}
	}
}

// Client issues commands over one connection. Commands are serialized.
type Client struct {
	wrapper socket.Wrapper
	opts    options
	log     logger.Logger

	mu     sync.Mutex
	stream net.Conn
	tls    *tls.ConnectionState
	rd     *bufio.Reader
	wr     *bufio.Writer
	broken error
}

// New returns a Client over w. No I/O happens until Connect.
func New(w socket.Wrapper, opts ...Option) *Client {
	o := options{
		logger:         logger.Default(),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		wrapper: w,
		opts:    o,
		log:     o.logger.With("component", "client"),
	}
}

// Connect establishes the connection once. Establishment errors are
// returned unchanged. When the wrapper negotiated TLS the session is the
// stream; otherwise the transport handle is.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.wrapper.Establish(ctx); err != nil {
		return err
	}

	session, err := c.wrapper.TLSSession()
	if err != nil {
		return err
	}
	if session != nil {
		state := session.ConnectionState()
		c.tls = &state
		c.setStream(session)
		c.log.Debug("using tls session", "tls_version", tls.VersionName(state.Version))
		return nil
	}

	conn, err := c.wrapper.TransportHandle()
	if err != nil {
		return err
	}
	c.tls = nil
	c.setStream(conn)
	return nil
}

func (c *Client) setStream(conn net.Conn) {
	c.stream = conn
	c.rd = bufio.NewReader(conn)
	c.wr = bufio.NewWriter(conn)
}

// ConnectionState returns the negotiated TLS state, false for a plain
// connection or before Connect.
func (c *Client) ConnectionState() (tls.ConnectionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tls == nil {
		return tls.ConnectionState{}, false
	}
	return *c.tls, true
}

// Do sends one command and returns its reply. An error reply is returned
// together with domain.ErrServerReply.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Reply, error) {
	b := make([][]byte, len(args))
	for i, a := range args {
		b[i] = []byte(a)
	}
	return c.do(ctx, b)
}

func (c *Client) do(ctx context.Context, args [][]byte) (resp.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken != nil {
		return resp.Reply{}, domain.ErrInvalidState.WithDetails(domain.ReasonBroken).WithCause(c.broken)
	}
	if c.stream == nil {
		return resp.Reply{}, domain.ErrInvalidState.WithDetails(domain.ReasonNotEstablished)
	}
	if err := ctx.Err(); err != nil {
		return resp.Reply{}, err
	}

	name := resp.CommandName(args)

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline && c.opts.requestTimeout > 0 {
		deadline = time.Now().Add(c.opts.requestTimeout)
	}
	disarm := armDeadline(ctx, c.stream, deadline)
	reply, err := c.roundTrip(args)
	disarm()

	if err != nil {
		err = commandError(ctx, name, hasDeadline, err)
		c.markBroken(err)
		return resp.Reply{}, err
	}

	if reply.Kind == resp.KindError {
		c.log.Debug("server error reply", "command", name, "reply", reply.Str)
		return reply, domain.ErrServerReply.WithDetails(reply.Str)
	}
	return reply, nil
}

// armDeadline applies deadline to conn and makes ctx cancellation unblock
// pending I/O. The returned func undoes both, and only returns once the
// cancellation callback can no longer touch conn.
func armDeadline(ctx context.Context, conn net.Conn, deadline time.Time) func() {
	if !deadline.IsZero() {
		_ = conn.SetDeadline(deadline)
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	return func() {
		if !stop() {
			<-fired
		}
		_ = conn.SetDeadline(time.Time{})
	}
}

func commandError(ctx context.Context, name string, hasDeadline bool, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("client: %s: %w", name, ctxErr)
	}
	if hasDeadline && errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("client: %s: %w", name, context.DeadlineExceeded)
	}
	if errors.Is(err, resp.ErrProtocol) || errors.Is(err, resp.ErrLimitExceeded) {
		return domain.ErrProtocol.WithDetails(name).WithCause(err)
	}
	return fmt.Errorf("client: %s: %w", name, err)
}

// markBroken retires the connection after a command failed mid-flight.
// A late reply may still be in flight, so the stream can no longer be
// matched to requests. Later commands fail with ErrInvalidState.
func (c *Client) markBroken(cause error) {
	c.broken = cause
	c.stream, c.rd, c.wr = nil, nil, nil
	if err := c.wrapper.Close(); err != nil {
		c.log.Debug("close after failed command", "error", err)
	}
	c.log.Debug("connection retired", "error", cause)
}

func (c *Client) roundTrip(args [][]byte) (resp.Reply, error) {
	if err := resp.WriteCommand(c.wr, args...); err != nil {
		return resp.Reply{}, err
	}
	if err := c.wr.Flush(); err != nil {
		return resp.Reply{}, err
	}
	return resp.ReadReply(c.rd)
}

// Ping checks the server answers PONG.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.Do(ctx, "PING")
	if err != nil {
		return err
	}
	if reply.Kind != resp.KindSimple || reply.Str != "PONG" {
		return unexpected("PING", reply)
	}
	return nil
}

// Get returns the value of key. found is false when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	reply, err := c.do(ctx, [][]byte{[]byte("GET"), []byte(key)})
	if err != nil {
		return nil, false, err
	}
	if reply.Kind != resp.KindBulk {
		return nil, false, unexpected("GET", reply)
	}
	if reply.Null {
		return nil, false, nil
	}
	return reply.Bulk, true, nil
}

// Set stores value under key. A positive ttl sets a millisecond expiry.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := [][]byte{[]byte("SET"), []byte(key), value}
	if ttl > 0 {
		ms := ttl.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		args = append(args, []byte("PX"), []byte(strconv.FormatInt(ms, 10)))
	}

	reply, err := c.do(ctx, args)
	if err != nil {
		return err
	}
	if reply.Kind != resp.KindSimple || reply.Str != "OK" {
		return unexpected("SET", reply)
	}
	return nil
}

// Del removes keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	args := make([][]byte, 0, len(keys)+1)
	args = append(args, []byte("DEL"))
	for _, k := range keys {
		args = append(args, []byte(k))
	}

	reply, err := c.do(ctx, args)
	if err != nil {
		return 0, err
	}
	if reply.Kind != resp.KindInteger {
		return 0, unexpected("DEL", reply)
	}
	return reply.Int, nil
}

// Close closes the wrapper. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stream, c.rd, c.wr, c.tls = nil, nil, nil, nil
	return c.wrapper.Close()
}

func unexpected(cmd string, reply resp.Reply) error {
	return domain.ErrProtocol.WithDetails(fmt.Sprintf("%s: unexpected %s reply", cmd, reply.Kind))
}
