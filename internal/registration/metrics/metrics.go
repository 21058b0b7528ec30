package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the registration flow.
type Metrics struct {
	ClaimsCommitted prometheus.Counter
	ClaimConflicts  prometheus.Counter
}

// New creates and registers the registration metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_claims_committed_total",
			Help: "Total number of committed claim transactions",
		}),
		ClaimConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_claim_conflicts_total",
			Help: "Total number of claim transactions lost to a concurrent claim",
		}),
	}
}

// NewNop returns unregistered counters for tests.
func NewNop() *Metrics {
	return &Metrics{
		ClaimsCommitted: prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_claims_committed"}),
		ClaimConflicts:  prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_claim_conflicts"}),
	}
}

func (m *Metrics) IncClaimsCommitted() { m.ClaimsCommitted.Inc() }
func (m *Metrics) IncClaimConflicts()  { m.ClaimConflicts.Inc() }
