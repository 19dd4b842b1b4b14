package domain

// State is the lifecycle state of a connection wrapper.
//
//	Unestablished -> Establishing -> {Established | Failed}
//	Established   -> Closed
//	Failed        -> Establishing (new attempt)
//
// Closed is terminal. Only Established permits reading the transport
// handle or the TLS session.
type State int

const (
	StateUnestablished State = iota
	StateEstablishing
	StateEstablished
	StateFailed
	StateClosed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUnestablished:
		return "unestablished"
	case StateEstablishing:
		return "establishing"
	case StateEstablished:
		return "established"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CanEstablish reports whether a new establishment attempt may start.
func (s State) CanEstablish() bool {
	return s == StateUnestablished || s == StateFailed
}

// Readable reports whether handles may be read in this state.
func (s State) Readable() bool {
	return s == StateEstablished
}

// CheckEstablish returns the error Establish must report in state s, or
// nil when a new attempt may begin. An established connection fails fast
// instead of being torn down and redialed.
func (s State) CheckEstablish() error {
	switch s {
	case StateUnestablished, StateFailed:
		return nil
	case StateEstablished:
		return ErrAlreadyEstablished
	case StateEstablishing:
		return ErrInvalidState.WithDetails(ReasonEstablishing)
	case StateClosed:
		return ErrInvalidState.WithDetails(ReasonClosed)
	default:
		return ErrInvalidState.WithDetails(s.String())
	}
}

// CheckReadable returns ErrInvalidState unless s is Established.
func (s State) CheckReadable() error {
	if s.Readable() {
		return nil
	}
	switch s {
	case StateClosed:
		return ErrInvalidState.WithDetails(ReasonClosed)
	case StateEstablishing:
		return ErrInvalidState.WithDetails(ReasonEstablishing)
	default:
		return ErrInvalidState.WithDetails(ReasonNotEstablished)
	}
}
