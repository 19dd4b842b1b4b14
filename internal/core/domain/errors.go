// Package domain defines the core domain models for kvwire.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a domain error with a structured error code.
//
// Details carries the specific failure reason (for example "peer reset"),
// so callers can tell "network unreachable" apart from "security
// negotiation failed" without parsing messages.
type DomainError struct {
	Code    string // Error code (e.g., "KW-TLS-5250")
	Message string // Human-readable message
	Details string // Failure reason
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Reason returns the failure reason of the outermost DomainError in the
// chain, or "" when err carries none.
func Reason(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Details
	}
	return ""
}

// Failure reasons reported in DomainError.Details.
const (
	ReasonNotFound          = "not found"
	ReasonTemporary         = "temporary failure"
	ReasonTimeout           = "timeout"
	ReasonRefused           = "refused"
	ReasonUnreachable       = "unreachable"
	ReasonReset             = "reset"
	ReasonPeerReset         = "peer reset"
	ReasonCertificate       = "certificate rejected"
	ReasonProtocolMismatch  = "protocol mismatch"
	ReasonNegotiation       = "negotiation failed"
	ReasonCanceled          = "canceled"
	ReasonClosed            = "closed"
	ReasonNotEstablished    = "not established"
	ReasonEstablishing      = "establishment in progress"
	ReasonClosedDuringSetup = "closed during establishment"
	ReasonBroken            = "broken by failed command"
)

// Sentinels are compared by Code, so a copy carrying Details or a Cause
// still matches with errors.Is.
var (
	// Establishment: resolve, connect, handshake.
	ErrResolution = NewDomainError("KW-NET-5020", "name resolution failed")
	ErrConnect    = NewDomainError("KW-NET-5030", "connection refused or timed out")
	ErrHandshake  = NewDomainError("KW-TLS-5250", "tls handshake failed")

	// Lifecycle. ErrInvalidState covers reading the transport or session
	// outside the Established state.
	ErrAlreadyEstablished = NewDomainError("KW-CONN-4090", "connection already established")
	ErrInvalidState       = NewDomainError("KW-CONN-4091", "invalid connection state")

	// Caller input.
	ErrInvalidEndpoint = NewDomainError("KW-ARG-1001", "invalid endpoint")
	ErrInvalidConfig   = NewDomainError("KW-ARG-1002", "invalid configuration")

	// Wire protocol.
	ErrProtocol    = NewDomainError("KW-PROTO-5000", "protocol error")
	ErrServerReply = NewDomainError("KW-PROTO-4000", "server error reply")
)

// Category returns the middle segment of err's code ("NET", "TLS", ...)
// or "" when err is not a DomainError.
func Category(err error) string {
	code := GetErrorCode(err)
	first := strings.IndexByte(code, '-')
	if first < 0 {
		return ""
	}
	rest := code[first+1:]
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		return rest[:i]
	}
	return ""
}
