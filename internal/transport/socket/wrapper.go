// Package socket owns the network connection a key-value protocol client
// talks over.
//
// A Wrapper establishes exactly one plain or TLS connection to a fixed
// endpoint and hands the resulting transport handle and TLS session to
// the protocol layer above it. Socket is the real implementation; the
// sockettest package provides a scripted substitute with the same state
// machine and error taxonomy.
package socket

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/yndnr/kvwire-go/internal/core/domain"
)

//go:generate go tool mockgen -destination=./mocks/wrapper_mock.go -package=mocks . Wrapper

// Wrapper is everything a protocol engine may depend on.
type Wrapper interface {
	// Establish performs one connection attempt, including the TLS
	// handshake when the endpoint asks for it. Partial success is
	// reported as failure with all opened resources already released.
	// Calling Establish on an established wrapper fails fast with
	// domain.ErrAlreadyEstablished.
	Establish(ctx context.Context) error

	// TransportHandle returns the raw transport connection. It returns
	// domain.ErrInvalidState unless the wrapper is established.
	TransportHandle() (net.Conn, error)

	// TLSSession returns the negotiated TLS session, or nil with no error
	// when TLS was not requested. It returns domain.ErrInvalidState unless
	// the wrapper is established.
	TLSSession() (Session, error)

	// Close releases the TLS session and then the transport. Closing a
	// closed or never established wrapper is a no-op.
	Close() error
}

// Session is a negotiated TLS session layered on a transport handle.
// *tls.Conn satisfies it.
type Session interface {
	net.Conn
	ConnectionState() tls.ConnectionState
}

// Observer receives establishment outcomes, typically for metrics.
type Observer interface {
	ObserveEstablish(ep domain.Endpoint, elapsed time.Duration, err error)
	ObserveClose(ep domain.Endpoint)
}

type nopObserver struct{}

func (nopObserver) ObserveEstablish(domain.Endpoint, time.Duration, error) {}
func (nopObserver) ObserveClose(domain.Endpoint)                           {}
