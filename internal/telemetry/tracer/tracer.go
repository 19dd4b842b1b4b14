// Package tracer times the phases of connection establishment.
//
// A Trace rides on the context passed to Establish. Each phase opens a
// Span, and ending the span records its duration on the trace (when one
// is present) and logs it at debug level.
package tracer

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/kvwire-go/internal/telemetry/logger"
)

// Phase names recorded by the socket layer.
const (
	PhaseResolve   = "resolve"
	PhaseConnect   = "connect"
	PhaseHandshake = "handshake"
)

// Phase is one finished span.
type Phase struct {
	Name    string
	Elapsed time.Duration
	Err     error
}

// Trace collects the phases of one attempt. Safe for concurrent use.
type Trace struct {
	mu     sync.Mutex
	phases []Phase
}

// Phases returns the recorded phases in completion order.
func (t *Trace) Phases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Phase, len(t.phases))
	copy(out, t.phases)
	return out
}

// Elapsed sums the durations recorded under name.
func (t *Trace) Elapsed(name string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var d time.Duration
	for _, p := range t.phases {
		if p.Name == name {
			d += p.Elapsed
		}
	}
	return d
}

func (t *Trace) add(p Phase) {
	t.mu.Lock()
	t.phases = append(t.phases, p)
	t.mu.Unlock()
}

type traceKey struct{}

// WithTrace returns a context carrying a fresh Trace.
func WithTrace(ctx context.Context) (context.Context, *Trace) {
	t := &Trace{}
	return context.WithValue(ctx, traceKey{}, t), t
}

// FromContext returns the Trace on ctx, or nil.
func FromContext(ctx context.Context) *Trace {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

// Span times one phase.
type Span struct {
	name  string
	trace *Trace
	log   logger.Logger
	start time.Time

	mu    sync.Mutex
	attrs []any
	err   error
	ended bool
}

// StartSpan starts timing name. log may be nil.
func StartSpan(ctx context.Context, log logger.Logger, name string) *Span {
	return &Span{
		name:  name,
		trace: FromContext(ctx),
		log:   log,
		start: time.Now(),
	}
}

// SetAttribute attaches a key/value to the span's log line.
func (s *Span) SetAttribute(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// RecordError marks the span failed. A nil err is ignored.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// End stops the clock and returns the span's duration. Only the first
// call records anything.
func (s *Span) End() time.Duration {
	elapsed := time.Since(s.start)

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return elapsed
	}
	s.ended = true
	err := s.err
	args := append([]any{"phase", s.name, "elapsed", elapsed}, s.attrs...)
	s.mu.Unlock()

	if s.trace != nil {
		s.trace.add(Phase{Name: s.name, Elapsed: elapsed, Err: err})
	}
	if s.log != nil {
		if err != nil {
			args = append(args, "error", err)
		}
		s.log.Debug("phase finished", args...)
	}
	return elapsed
}
