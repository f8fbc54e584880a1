package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance module.
type Metrics struct {
	// Transfer authorization outcomes by result and denial reason
	TransferOutcome *prometheus.CounterVec

	// Authorization check latency
	AuthorizeLatency prometheus.Histogram

	// Whitelist and blacklist mutations by list and operation
	ListMutations *prometheus.CounterVec

	// Current number of active whitelist entries
	WhitelistSize prometheus.Gauge
}

// New creates a new Metrics instance with all compliance module metrics registered.
func New() *Metrics {
	return &Metrics{
		TransferOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_compliance_transfer_outcomes_total",
			Help: "Total transfer authorization outcomes by result and reason",
		}, []string{"result", "reason"}), // result: "allowed", "denied"

		AuthorizeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_compliance_authorize_duration_seconds",
			Help:    "Duration of transfer authorization checks",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		ListMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_compliance_list_mutations_total",
			Help: "Total whitelist and blacklist mutations by list and operation",
		}, []string{"list", "op"}), // list: "whitelist", "blacklist"; op: "add", "remove"

		WhitelistSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custodia_compliance_whitelist_size",
			Help: "Current number of active whitelist entries",
		}),
	}
}

// IncrementOutcome records a transfer authorization outcome. Reason is empty
// for allowed transfers.
func (m *Metrics) IncrementOutcome(result, reason string) {
	if m != nil {
		m.TransferOutcome.WithLabelValues(result, reason).Inc()
	}
}

// ObserveAuthorizeLatency records the duration of an authorization check.
func (m *Metrics) ObserveAuthorizeLatency(d time.Duration) {
	if m != nil {
		m.AuthorizeLatency.Observe(d.Seconds())
	}
}

// IncrementListMutation records a whitelist or blacklist mutation.
func (m *Metrics) IncrementListMutation(list, op string) {
	if m != nil {
		m.ListMutations.WithLabelValues(list, op).Inc()
	}
}

// SetWhitelistSize records the current active whitelist entry count.
func (m *Metrics) SetWhitelistSize(n uint64) {
	if m != nil {
		m.WhitelistSize.Set(float64(n))
	}
}
