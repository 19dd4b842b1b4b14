package socket

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/yndnr/kvwire-go/internal/core/domain"
)

// TLS alerts (RFC 8446 §6) sent by a server that rejected our certificate
// chain or that we rejected.
const (
	alertBadCertificate         tls.AlertError = 42
	alertUnsupportedCertificate tls.AlertError = 43
	alertCertificateRevoked     tls.AlertError = 44
	alertCertificateExpired     tls.AlertError = 45
	alertCertificateUnknown     tls.AlertError = 46
	alertUnknownCA              tls.AlertError = 48
	alertCertificateRequired    tls.AlertError = 116
)

// classifyResolveError maps a resolver failure to ErrResolution.
func classifyResolveError(err error) *domain.DomainError {
	reason := domain.ReasonTemporary

	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.Canceled):
		reason = domain.ReasonCanceled
	case isTimeout(err):
		reason = domain.ReasonTimeout
	case errors.As(err, &dnsErr) && dnsErr.IsNotFound:
		reason = domain.ReasonNotFound
	}

	return domain.ErrResolution.WithDetails(reason).WithCause(err)
}

// classifyConnectError maps a dial failure to ErrConnect.
func classifyConnectError(err error) *domain.DomainError {
	reason := domain.ReasonUnreachable

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		reason = domain.ReasonRefused
	case errors.Is(err, syscall.ECONNRESET):
		reason = domain.ReasonReset
	case errors.Is(err, context.Canceled):
		reason = domain.ReasonCanceled
	case isTimeout(err):
		reason = domain.ReasonTimeout
	}

	return domain.ErrConnect.WithDetails(reason).WithCause(err)
}

// classifyHandshakeError maps a TLS handshake failure to ErrHandshake.
// Certificate problems are checked before transport problems so a peer
// that hangs up after sending a bad_certificate alert is reported as a
// certificate rejection.
func classifyHandshakeError(err error) *domain.DomainError {
	reason := domain.ReasonNegotiation

	switch {
	case errors.Is(err, context.Canceled):
		reason = domain.ReasonCanceled
	case isTimeout(err):
		reason = domain.ReasonTimeout
	case isCertificateError(err):
		reason = domain.ReasonCertificate
	case isPeerReset(err):
		reason = domain.ReasonPeerReset
	case isProtocolMismatch(err):
		reason = domain.ReasonProtocolMismatch
	}

	return domain.ErrHandshake.WithDetails(reason).WithCause(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthErr) {
		return true
	}
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &invalidErr) {
		return true
	}
	var alert tls.AlertError
	if errors.As(err, &alert) {
		switch alert {
		case alertBadCertificate, alertUnsupportedCertificate, alertCertificateRevoked,
			alertCertificateExpired, alertCertificateUnknown, alertUnknownCA, alertCertificateRequired:
			return true
		}
	}
	return false
}

func isPeerReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func isProtocolMismatch(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var alert tls.AlertError
	return errors.As(err, &alert)
}
