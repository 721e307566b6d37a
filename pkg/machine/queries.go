package machine

import "github.com/openrig/trialctl/pkg/domain"

// Info is a point-in-time snapshot of the machine.
type Info struct {
	CurrentState int       `json:"current_state"`
	Running      bool      `json:"running"`
	Configured   bool      `json:"configured"`
	NumStates    int       `json:"num_states"`
	NumEvents    int       `json:"num_events"`
	NumOutputs   int       `json:"num_outputs"`
	OutputStates []bool    `json:"output_states"`
	StateTimers  []float64 `json:"state_timers"`
}

// CurrentState returns the current state index.
func (m *Machine) CurrentState() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Running reports whether the machine is executing.
func (m *Machine) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Configured reports whether matrix, timers and outputs are all set.
func (m *Machine) Configured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured()
}

// TimerEventIndex returns the column looked up on state-timer expiry.
func (m *Machine) TimerEventIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timerEvent
}

// OutputState returns the current boolean value of one output channel.
func (m *Machine) OutputState(output int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if output < 0 || output >= m.numOutputs {
		return false, &domain.RangeError{What: "output", Index: output, N: m.numOutputs}
	}
	return m.outputStates[output], nil
}

// TransitionsFromState returns the full transition row for a state: the
// target state for every event.
func (m *Machine) TransitionsFromState(state int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured() {
		return nil, domain.ErrNotConfigured
	}
	if state < 0 || state >= m.numStates {
		return nil, &domain.RangeError{What: "state", Index: state, N: m.numStates}
	}
	return append([]int(nil), m.stateMatrix[state]...), nil
}

// TransitionsForEvent returns the full column for an event: the target
// state from every state.
func (m *Machine) TransitionsForEvent(event int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured() {
		return nil, domain.ErrNotConfigured
	}
	if event < 0 || event >= m.numEvents {
		return nil, &domain.RangeError{What: "input event", Index: event, N: m.numEvents}
	}
	col := make([]int, m.numStates)
	for idx, row := range m.stateMatrix {
		col[idx] = row[event]
	}
	return col, nil
}

// StatesWithOutput returns the states whose directive for the given
// output channel matches value (on or off; NoChange never matches).
func (m *Machine) StatesWithOutput(output int, value bool) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured() {
		return nil, domain.ErrNotConfigured
	}
	if output < 0 || output >= m.numOutputs {
		return nil, &domain.RangeError{What: "output", Index: output, N: m.numOutputs}
	}
	want := domain.OutputOff
	if value {
		want = domain.OutputOn
	}
	var states []int
	for idx, row := range m.stateOut {
		if row[output] == want {
			states = append(states, idx)
		}
	}
	return states, nil
}

// Info returns a snapshot of the machine's configuration and state.
func (m *Machine) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Info{
		CurrentState: m.current,
		Running:      m.running,
		Configured:   m.configured(),
		NumStates:    m.numStates,
		NumEvents:    m.numEvents,
		NumOutputs:   m.numOutputs,
		OutputStates: append([]bool(nil), m.outputStates...),
		StateTimers:  append([]float64(nil), m.stateTimers...),
	}
}
