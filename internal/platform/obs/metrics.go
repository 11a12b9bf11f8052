package obs

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's Prometheus collectors. A nil *Metrics records
// nothing, so components can run without instrumentation in tests.
type Metrics struct {
	dispatch    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	routeLookup *prometheus.CounterVec
	provider    *prometheus.HistogramVec
	sweep       *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg, or the default registerer when
// reg is nil. Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_dispatch_total",
			Help: "Pickup dispatch attempts by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_transitions_total",
			Help: "Lifecycle transition attempts by target status and outcome",
		}, []string{"to", "outcome"}),
		routeLookup: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "route_cache_lookups_total",
			Help: "Route cache lookups by result",
		}, []string{"result"}),
		provider: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "route_provider_duration_seconds",
			Help:    "Latency of routing provider calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		sweep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inactivity_notifications_total",
			Help: "Inactivity notifications by role and delivery outcome",
		}, []string{"role", "outcome"}),
	}

	var err error
	if m.dispatch, err = registerCounter(reg, m.dispatch); err != nil {
		return nil, err
	}
	if m.transitions, err = registerCounter(reg, m.transitions); err != nil {
		return nil, err
	}
	if m.routeLookup, err = registerCounter(reg, m.routeLookup); err != nil {
		return nil, err
	}
	if m.sweep, err = registerCounter(reg, m.sweep); err != nil {
		return nil, err
	}
	if err := reg.Register(m.provider); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.provider = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m, nil
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

func (m *Metrics) Dispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Transition(to, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, outcome).Inc()
}

// RouteLookup counts a cache lookup; result is hit, miss or error.
func (m *Metrics) RouteLookup(result string) {
	if m == nil {
		return
	}
	m.routeLookup.WithLabelValues(result).Inc()
}

func (m *Metrics) ProviderCall(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.provider.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) Notification(role, outcome string) {
	if m == nil {
		return
	}
	m.sweep.WithLabelValues(role, outcome).Inc()
}
