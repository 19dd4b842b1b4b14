// Package domain defines the core domain models for kvwire.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Endpoint: the immutable network target of a connection wrapper
//   - State: the connection lifecycle state machine
//   - Errors: the establishment error taxonomy
package domain
