package domain

import (
	"crypto/rand"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Endpoint constraints.
const (
	MaxHostLength = 253
	MinPort       = 1
	MaxPort       = 65535

	// ConnIDPrefix is the prefix for connection IDs.
	ConnIDPrefix = "kwcn-"
)

// Endpoint is the network target a connection wrapper is bound to.
// It is a value type; wrappers keep their own copy so it cannot change
// after construction.
type Endpoint struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	UseTLS bool   `json:"tls" yaml:"tls"`
}

// NewEndpoint builds and validates an Endpoint.
func NewEndpoint(host string, port int, useTLS bool) (Endpoint, error) {
	ep := Endpoint{Host: host, Port: port, UseTLS: useTLS}
	if err := ep.Validate(); err != nil {
		return Endpoint{}, err
	}
	return ep, nil
}

// Validate checks host and port.
func (e Endpoint) Validate() error {
	host := strings.TrimSpace(e.Host)
	if host == "" {
		return ErrInvalidEndpoint.WithDetails("host is required")
	}
	if host != e.Host {
		return ErrInvalidEndpoint.WithDetails("host must not contain surrounding whitespace")
	}
	if len(host) > MaxHostLength {
		return ErrInvalidEndpoint.WithDetails(fmt.Sprintf("host exceeds %d characters", MaxHostLength))
	}
	if strings.ContainsAny(host, "/ ") {
		return ErrInvalidEndpoint.WithDetails(fmt.Sprintf("invalid host %q", host))
	}
	if e.Port < MinPort || e.Port > MaxPort {
		return ErrInvalidEndpoint.WithDetails(fmt.Sprintf("invalid port: %d", e.Port))
	}
	return nil
}

// Address returns host:port suitable for dialing.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// IsIP reports whether Host is an IP literal that needs no resolution.
func (e Endpoint) IsIP() bool {
	return net.ParseIP(e.Host) != nil
}

// String returns a scheme-qualified form, e.g. "tls://storage.local:8443".
func (e Endpoint) String() string {
	scheme := "tcp"
	if e.UseTLS {
		scheme = "tls"
	}
	return scheme + "://" + e.Address()
}

// GenerateConnID generates a new connection ID used to correlate log
// lines and metrics of one wrapper instance.
// Format: kwcn-{ulid_lowercase}, 31 characters total.
func GenerateConnID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", fmt.Errorf("generate conn id: %w", err)
	}
	return ConnIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidConnID validates the connection ID format.
func IsValidConnID(id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, ConnIDPrefix) {
		return false
	}

	// kwcn- (5) + ULID (26) = 31 characters
	if len(id) != 31 {
		return false
	}

	_, err := ulid.Parse(strings.ToUpper(id[len(ConnIDPrefix):]))
	return err == nil
}
