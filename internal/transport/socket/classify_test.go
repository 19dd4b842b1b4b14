package socket

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yndnr/kvwire-go/internal/core/domain"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyResolveError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}, domain.ReasonNotFound},
		{"dns timeout", &net.DNSError{Err: "timeout", Name: "x", IsTimeout: true}, domain.ReasonTimeout},
		{"deadline", context.DeadlineExceeded, domain.ReasonTimeout},
		{"canceled", context.Canceled, domain.ReasonCanceled},
		{"server failure", &net.DNSError{Err: "server misbehaving", Name: "x", IsTemporary: true}, domain.ReasonTemporary},
		{"other", errors.New("boom"), domain.ReasonTemporary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyResolveError(tt.err)
			assert.ErrorIs(t, got, domain.ErrResolution)
			assert.ErrorIs(t, got, tt.err)
			assert.Equal(t, tt.want, got.Details)
		})
	}
}

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, domain.ReasonRefused},
		{"reset", &net.OpError{Op: "dial", Err: syscall.ECONNRESET}, domain.ReasonReset},
		{"deadline", context.DeadlineExceeded, domain.ReasonTimeout},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, domain.ReasonTimeout},
		{"canceled", fmt.Errorf("dial: %w", context.Canceled), domain.ReasonCanceled},
		{"unreachable", &net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH}, domain.ReasonUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyConnectError(tt.err)
			assert.ErrorIs(t, got, domain.ErrConnect)
			assert.Equal(t, tt.want, got.Details)
		})
	}
}

func TestClassifyHandshakeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"verification", &tls.CertificateVerificationError{Err: x509.UnknownAuthorityError{Cert: &x509.Certificate{}}}, domain.ReasonCertificate},
		{"hostname", x509.HostnameError{Certificate: &x509.Certificate{}, Host: "storage.local"}, domain.ReasonCertificate},
		{"invalid", x509.CertificateInvalidError{Cert: &x509.Certificate{}, Reason: x509.Expired}, domain.ReasonCertificate},
		{"bad certificate alert", fmt.Errorf("remote error: %w", tls.AlertError(42)), domain.ReasonCertificate},
		{"unknown ca alert", tls.AlertError(48), domain.ReasonCertificate},
		{"eof", io.EOF, domain.ReasonPeerReset},
		{"unexpected eof", io.ErrUnexpectedEOF, domain.ReasonPeerReset},
		{"reset", &net.OpError{Op: "read", Err: syscall.ECONNRESET}, domain.ReasonPeerReset},
		{"broken pipe", &net.OpError{Op: "write", Err: syscall.EPIPE}, domain.ReasonPeerReset},
		{"record header", tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}, domain.ReasonProtocolMismatch},
		{"protocol version alert", tls.AlertError(70), domain.ReasonProtocolMismatch},
		{"deadline", &net.OpError{Op: "read", Err: os.ErrDeadlineExceeded}, domain.ReasonTimeout},
		{"canceled", context.Canceled, domain.ReasonCanceled},
		{"other", errors.New("tls: internal error"), domain.ReasonNegotiation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyHandshakeError(tt.err)
			assert.ErrorIs(t, got, domain.ErrHandshake)
			assert.Equal(t, tt.want, got.Details)
		})
	}
}
