package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the escrow protocol.
type Metrics struct {
	// Escrow state transitions by resulting status
	Transitions *prometheus.CounterVec

	// Settlement (release) latency from escrow creation
	SettlementAge prometheus.Histogram
}

// New creates a new Metrics instance with all escrow metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_escrow_transitions_total",
			Help: "Total escrow state transitions by resulting status",
		}, []string{"status"}),

		SettlementAge: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_escrow_settlement_age_seconds",
			Help:    "Age of escrows at release time",
			Buckets: prometheus.ExponentialBuckets(60, 4, 8),
		}),
	}
}

// IncrementTransition records an escrow state transition.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

// ObserveSettlementAge records how long an escrow was open before release.
func (m *Metrics) ObserveSettlementAge(age time.Duration) {
	if m != nil {
		m.SettlementAge.Observe(age.Seconds())
	}
}
