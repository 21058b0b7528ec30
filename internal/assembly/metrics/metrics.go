package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the assembly lifecycle.
type Metrics struct {
	Transitions     prometheus.Counter
	AutoStarts      prometheus.Counter
	CleanupFailures prometheus.Counter
}

// New creates and registers the assembly metrics.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_assembly_transitions_total",
			Help: "Total number of assembly lifecycle transitions",
		}),
		AutoStarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_assembly_autostarts_total",
			Help: "Total number of assemblies started by the scheduler",
		}),
		CleanupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_restart_cleanup_failures_total",
			Help: "Total number of best-effort restart cleanup steps that failed",
		}),
	}
}

// NewNop returns unregistered counters for tests.
func NewNop() *Metrics {
	return &Metrics{
		Transitions:     prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_assembly_transitions"}),
		AutoStarts:      prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_assembly_autostarts"}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_restart_cleanup_failures"}),
	}
}

func (m *Metrics) IncTransitions()     { m.Transitions.Inc() }
func (m *Metrics) IncAutoStarts()      { m.AutoStarts.Inc() }
func (m *Metrics) IncCleanupFailures() { m.CleanupFailures.Inc() }
