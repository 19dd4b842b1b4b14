package socket

import (
	"crypto/tls"
	"time"

	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
)

// Default deadlines.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

type options struct {
	connectTimeout   time.Duration
	handshakeTimeout time.Duration
	tlsConfig        *tls.Config
	resolver         Resolver
	dialer           Dialer
	handshaker       TLSHandshaker
	logger           logger.Logger
	observer         Observer
}

func defaultOptions() options {
	return options{
		connectTimeout:   DefaultConnectTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		resolver:         DefaultResolver,
		dialer:           DefaultDialer,
		handshaker:       DefaultTLSHandshaker,
		logger:           logger.Default(),
		observer:         nopObserver{},
	}
}

// Option configures a Socket.
type Option func(*options)

// WithConnectTimeout bounds name resolution plus the transport connect.
// Non-positive values keep the default.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.connectTimeout = d
		}
	}
}

// WithHandshakeTimeout bounds the TLS handshake.
// Non-positive values keep the default.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.handshakeTimeout = d
		}
	}
}

// WithTLSConfig sets trusted roots, client certificates and SNI for TLS
// endpoints. The config is cloned on use. When ServerName is empty the
// endpoint host is used.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = cfg
	}
}

// WithResolver replaces the host resolver.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithDialer replaces the transport dialer.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithTLSHandshaker replaces the TLS handshaker.
func WithTLSHandshaker(h TLSHandshaker) Option {
	return func(o *options) {
		if h != nil {
			o.handshaker = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the establishment observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
