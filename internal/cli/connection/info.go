package connection

import (
	"crypto/tls"
	"time"
)

// Info describes an established connection for display.
type Info struct {
	Endpoint    string        `json:"endpoint" yaml:"endpoint"`
	RemoteAddr  string        `json:"remote_addr" yaml:"remote_addr"`
	LocalAddr   string        `json:"local_addr,omitempty" yaml:"local_addr,omitempty" table:"wide"`
	TLS         bool          `json:"tls" yaml:"tls"`
	TLSVersion  string        `json:"tls_version,omitempty" yaml:"tls_version,omitempty"`
	CipherSuite string        `json:"cipher_suite,omitempty" yaml:"cipher_suite,omitempty" table:"wide"`
	ServerName  string        `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	ALPN        string        `json:"alpn,omitempty" yaml:"alpn,omitempty" table:"wide"`
	PeerSubject string        `json:"peer_subject,omitempty" yaml:"peer_subject,omitempty"`
	PeerExpires time.Time     `json:"peer_expires,omitzero" yaml:"peer_expires,omitempty" table:"wide"`
	Elapsed     time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Describe summarizes c. Fields that need the transport are left empty
// once the connection has been closed.
func Describe(c *Connection) Info {
	info := Info{
		Endpoint: c.Endpoint.String(),
		TLS:      c.Endpoint.UseTLS,
		Elapsed:  c.Elapsed,
	}

	if conn, err := c.wrapper.TransportHandle(); err == nil {
		if addr := conn.RemoteAddr(); addr != nil {
			info.RemoteAddr = addr.String()
		}
		if addr := conn.LocalAddr(); addr != nil {
			info.LocalAddr = addr.String()
		}
	}

	state, ok := c.Client.ConnectionState()
	if !ok {
		return info
	}
	info.TLSVersion = tls.VersionName(state.Version)
	info.CipherSuite = tls.CipherSuiteName(state.CipherSuite)
	info.ServerName = state.ServerName
	info.ALPN = state.NegotiatedProtocol
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		info.PeerSubject = leaf.Subject.String()
		info.PeerExpires = leaf.NotAfter
	}
	return info
}
