package socket

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// Resolver resolves a host name into addresses.
// *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dialer opens transport connections.
// *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TLSHandshaker runs a client TLS handshake over an established transport.
// It does NOT take ownership of conn: closing it on failure is the
// caller's job.
type TLSHandshaker interface {
	Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (Session, error)
}

// TLSHandshakerStdlib performs the handshake with crypto/tls.
type TLSHandshakerStdlib struct{}

var _ TLSHandshaker = TLSHandshakerStdlib{}

// Handshake implements TLSHandshaker. The context deadline is applied to
// the connection for the duration of the handshake and cleared afterwards.
func (TLSHandshakerStdlib) Handshake(ctx context.Context, conn net.Conn, config *tls.Config) (Session, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}
	tlsconn := tls.Client(conn, config)
	if err := tlsconn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tlsconn, nil
}

// DefaultResolver is the resolver used when none is configured.
var DefaultResolver Resolver = net.DefaultResolver

// DefaultDialer is the dialer used when none is configured. Deadlines
// come from the context, so no Timeout is set here.
var DefaultDialer Dialer = &net.Dialer{KeepAlive: 30 * time.Second}

// DefaultTLSHandshaker is the handshaker used when none is configured.
var DefaultTLSHandshaker TLSHandshaker = TLSHandshakerStdlib{}
