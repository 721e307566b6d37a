// Package metrics defines the Prometheus instrumentation for a running
// session: event, transition, output and trial counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session counters. All counters are incremented from
// machine/dispatcher notification handlers.
type Metrics struct {
	EventsProcessed prometheus.Counter
	Transitions     prometheus.Counter
	OutputChanges   prometheus.Counter
	TrialsStarted   prometheus.Counter
}

// New registers the session counters with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "trialctl_events_processed_total",
			Help: "Events handled by the state machine, self-loops included.",
		}),
		Transitions: factory.NewCounter(prometheus.CounterOpts{
			Name: "trialctl_state_transitions_total",
			Help: "Real state transitions.",
		}),
		OutputChanges: factory.NewCounter(prometheus.CounterOpts{
			Name: "trialctl_output_changes_total",
			Help: "Output channel flips, forced outputs included.",
		}),
		TrialsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "trialctl_trials_started_total",
			Help: "Trials started by the dispatcher.",
		}),
	}
}
