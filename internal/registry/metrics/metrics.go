package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the asset registry.
type Metrics struct {
	// Asset lifecycle transitions by target status
	AssetTransitions *prometheus.CounterVec

	// Token mints created
	MintsCreated prometheus.Counter

	// Tokens issued by mint
	TokensMinted *prometheus.CounterVec
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		AssetTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_registry_asset_transitions_total",
			Help: "Total asset lifecycle transitions by resulting status",
		}, []string{"status"}),

		MintsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_registry_mints_created_total",
			Help: "Total token mints provisioned",
		}),

		TokensMinted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_registry_tokens_minted_total",
			Help: "Total tokens issued by mint",
		}, []string{"mint"}),
	}
}

// IncrementTransition records an asset lifecycle transition.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.AssetTransitions.WithLabelValues(status).Inc()
	}
}

// IncrementMintsCreated records a provisioned mint.
func (m *Metrics) IncrementMintsCreated() {
	if m != nil {
		m.MintsCreated.Inc()
	}
}

// AddTokensMinted records issued tokens.
func (m *Metrics) AddTokensMinted(mint string, amount uint64) {
	if m != nil {
		m.TokensMinted.WithLabelValues(mint).Add(float64(amount))
	}
}
