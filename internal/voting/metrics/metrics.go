package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the voting flow.
type Metrics struct {
	VotesRecorded   prometheus.Counter
	VotesRejected   prometheus.Counter
	QuestionChanges prometheus.Counter
}

// New creates and registers the voting metrics.
func New() *Metrics {
	return &Metrics{
		VotesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_votes_recorded_total",
			Help: "Total number of answers written to vote ledgers",
		}),
		VotesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_votes_rejected_total",
			Help: "Total number of vote submissions rejected before commit",
		}),
		QuestionChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_question_transitions_total",
			Help: "Total number of question lifecycle transitions",
		}),
	}
}

// NewNop returns unregistered counters for tests.
func NewNop() *Metrics {
	return &Metrics{
		VotesRecorded:   prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_votes_recorded"}),
		VotesRejected:   prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_votes_rejected"}),
		QuestionChanges: prometheus.NewCounter(prometheus.CounterOpts{Name: "nop_question_transitions"}),
	}
}

func (m *Metrics) AddVotesRecorded(n int) { m.VotesRecorded.Add(float64(n)) }
func (m *Metrics) IncVotesRejected()      { m.VotesRejected.Inc() }
func (m *Metrics) IncQuestionChanges()    { m.QuestionChanges.Inc() }
