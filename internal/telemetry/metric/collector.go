package metric

import (
	"strconv"
	"time"

	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/transport/socket"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Observer records socket establishment outcomes into a Registry.
type Observer struct {
	r *Registry
}

var _ socket.Observer = (*Observer)(nil)

// NewObserver returns an Observer writing to r, or to Global when r is nil.
func NewObserver(r *Registry) *Observer {
	if r == nil {
		r = Global()
	}
	return &Observer{r: r}
}

// ObserveEstablish implements socket.Observer.
func (o *Observer) ObserveEstablish(ep domain.Endpoint, elapsed time.Duration, err error) {
	tlsLabel := strconv.FormatBool(ep.UseTLS)
	o.r.EstablishDuration.WithLabelValues(tlsLabel).Observe(elapsed.Seconds())

	if err != nil {
		o.r.EstablishTotal.WithLabelValues(OutcomeFailure, reasonLabel(err), tlsLabel).Inc()
		return
	}
	o.r.EstablishTotal.WithLabelValues(OutcomeSuccess, "none", tlsLabel).Inc()
	o.r.ConnectionsOpen.Inc()
}

// ObserveClose implements socket.Observer.
func (o *Observer) ObserveClose(domain.Endpoint) {
	o.r.ConnectionsOpen.Dec()
}

// reasonLabel keeps label cardinality bounded: the domain reason when
// there is one, else the error code, else "other".
func reasonLabel(err error) string {
	if r := domain.Reason(err); r != "" && len(r) <= 32 {
		return r
	}
	if code := domain.GetErrorCode(err); code != "" {
		return code
	}
	return "other"
}
