package domain

import "time"

// EventRecord describes one processed event. It is emitted for every event
// the runtime handles, including self-loops, so external logs can tell a
// poke that was ignored apart from a poke that caused a transition.
type EventRecord struct {
	// Event is the matrix column of the event, or ForcedEvent (-1) for an
	// externally forced transition.
	Event int `json:"event"`

	// Timestamp is the wall-clock time at which the event was processed.
	Timestamp time.Time `json:"timestamp"`

	// NextState is the state resolved for this event. It equals the state
	// the event arrived in when the event self-loops.
	NextState int `json:"next_state"`
}
