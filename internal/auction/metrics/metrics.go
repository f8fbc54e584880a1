package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auction protocol.
type Metrics struct {
	// Auction state transitions by resulting status
	Transitions *prometheus.CounterVec

	// Bids accepted, by outcome of the previous high bid (first, outbid, replaced)
	BidsPlaced *prometheus.CounterVec

	// Winning bid amounts on settled auctions
	WinningBid prometheus.Histogram
}

// New creates a new Metrics instance with all auction metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_auction_transitions_total",
			Help: "Total auction state transitions by resulting status",
		}, []string{"status"}),

		BidsPlaced: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_auction_bids_total",
			Help: "Total accepted bids by kind",
		}, []string{"kind"}),

		WinningBid: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_auction_winning_bid",
			Help:    "Winning bid amounts on settled auctions",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		}),
	}
}

// IncrementTransition records an auction state transition.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

// IncrementBid records an accepted bid. Kind is "first", "outbid" when a
// rival was displaced, or "replaced" when a bidder raised their own bid.
func (m *Metrics) IncrementBid(kind string) {
	if m != nil {
		m.BidsPlaced.WithLabelValues(kind).Inc()
	}
}

// ObserveWinningBid records the clearing price of a settled auction.
func (m *Metrics) ObserveWinningBid(amount uint64) {
	if m != nil {
		m.WinningBid.Observe(float64(amount))
	}
}
