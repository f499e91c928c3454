package resilience

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Breaker collectors exist before registration so a breaker built in a test
// or in the CLI can record state without a registry.
var (
	stateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "billing_client_breaker_state",
		Help: "Breaker state per target (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_client_breaker_transitions_total",
		Help: "Breaker state changes per target.",
	}, []string{"target", "from", "to"})
	trips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_client_breaker_trips_total",
		Help: "Times the breaker opened per target.",
	}, []string{"target"})
)

// MustRegisterMetrics exposes the breaker collectors on reg. Registering twice
// is not an error.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{stateGauge, transitions, trips} {
		var already prometheus.AlreadyRegisteredError
		if err := reg.Register(c); err != nil && !errors.As(err, &already) {
			panic(err)
		}
	}
}
