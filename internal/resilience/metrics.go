package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	// BreakerState exposes the current breaker state per target
	// (0=closed, 1=open, 2=half_open).
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pos_breaker_state",
			Help: "Circuit breaker state per target (0=closed, 1=open, 2=half_open).",
		},
		[]string{"target"},
	)

	// BreakerTransitions counts state transitions per target.
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_breaker_transitions_total",
			Help: "Circuit breaker state transitions.",
		},
		[]string{"target", "from_state", "to_state"},
	)

	// BreakerOpenedTotal counts how many times a breaker opened.
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_breaker_opened_total",
			Help: "Number of times the circuit breaker opened.",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
