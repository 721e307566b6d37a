package matrix

import (
	"fmt"

	"github.com/openrig/trialctl/pkg/domain"
)

// Reserved state names managed by the builder.
const (
	StartState = "START"
	EndState   = "END"
)

// TimerEvent is the name of the synthetic event fired when the active
// state's timer expires.
const TimerEvent = "Tup"

// StateMatrix is an incremental, name-based builder for a complete
// automaton definition. The zero value is not usable; construct with New.
//
// States referenced before they are defined are auto-created with a
// default row (self-loop on every event, infinite timer, no output
// changes), so a template can be declared in any order.
type StateMatrix struct {
	inputs  map[string]int
	outputs map[string]int

	events       map[string]int
	nInputEvents int // input edge events plus Tup; excludes extra timers
	nOutputs     int

	states  *domain.IndexMap
	rows    [][]int
	timers  []float64
	outRows [][]domain.OutputDirective
	serial  []byte
	intOut  []int

	extraNames     []string
	extraDurations []float64
	extraTriggers  []int

	finalized bool
}

// New creates a builder for the given input and output channels. Inputs
// must be indexed 0..N-1; each input x contributes the events "xin" and
// "xout" at adjacent columns 2i and 2i+1, followed by the Tup column.
func New(inputs, outputs map[string]int) *StateMatrix {
	m := &StateMatrix{
		inputs:  inputs,
		outputs: outputs,
		events:  make(map[string]int),
		states:  domain.NewIndexMap(),
	}
	for name, idx := range inputs {
		m.events[name+"in"] = 2 * idx
		m.events[name+"out"] = 2*idx + 1
	}
	m.events[TimerEvent] = len(m.events)
	m.nInputEvents = len(m.events)
	m.events["Forced"] = domain.ForcedEvent
	m.nOutputs = len(outputs)
	return m
}

// nEvents is the current number of matrix columns.
func (m *StateMatrix) nEvents() int {
	return m.nInputEvents + len(m.extraNames)
}

// defaultRow returns a transition row where every event self-loops.
func (m *StateMatrix) defaultRow(stateIndex int) []int {
	row := make([]int, m.nEvents())
	for i := range row {
		row[i] = stateIndex
	}
	return row
}

func (m *StateMatrix) defaultOutputs() []domain.OutputDirective {
	out := make([]domain.OutputDirective, m.nOutputs)
	for i := range out {
		out[i] = domain.NoChange
	}
	return out
}

// appendState registers a new state with default row, infinite timer and
// all-outputs-unchanged. Indices are append-only and permanent.
func (m *StateMatrix) appendState(name string) int {
	idx := m.states.Add(name)
	m.rows = append(m.rows, m.defaultRow(idx))
	m.timers = append(m.timers, domain.InfiniteTime)
	m.outRows = append(m.outRows, m.defaultOutputs())
	m.serial = append(m.serial, 0)
	m.intOut = append(m.intOut, 0)
	return idx
}

// ensureStart creates the START state the first time a state is needed.
// START has a zero-duration timer and transitions to state 1 on Tup, so a
// machine forced into state 0 immediately advances into the first
// user-defined state.
func (m *StateMatrix) ensureStart() {
	if m.states.Len() > 0 {
		return
	}
	idx := m.appendState(StartState)
	m.timers[idx] = 0
	m.rows[idx][m.events[TimerEvent]] = 1
}

// ensureEnd appends the END state if it does not exist yet. END keeps its
// defaults: infinite timer, self-loop on every event.
func (m *StateMatrix) ensureEnd() {
	if _, ok := m.states.Index(EndState); !ok {
		m.appendState(EndState)
	}
}

// StateOption configures one state in an AddState call.
type StateOption func(*stateConfig)

type stateConfig struct {
	timer       float64
	transitions map[string]string
	outputsOn   []string
	outputsOff  []string
	triggers    []string
	serialOut   byte
	integerOut  int
}

// WithTimer sets the state's timer duration in seconds. States without a
// timer never time out.
func WithTimer(seconds float64) StateOption {
	return func(c *stateConfig) { c.timer = seconds }
}

// WithTransitions maps event names to target state names. Events not
// listed keep their default self-loop.
func WithTransitions(transitions map[string]string) StateOption {
	return func(c *stateConfig) { c.transitions = transitions }
}

// WithOutputsOn lists output channels to turn on when entering the state.
func WithOutputsOn(names ...string) StateOption {
	return func(c *stateConfig) { c.outputsOn = names }
}

// WithOutputsOff lists output channels to turn off when entering the state.
func WithOutputsOff(names ...string) StateOption {
	return func(c *stateConfig) { c.outputsOff = names }
}

// WithTrigger binds extra timers so they start when this state is entered.
// A later binding for the same timer silently replaces the previous one.
func WithTrigger(extraTimers ...string) StateOption {
	return func(c *stateConfig) { c.triggers = extraTimers }
}

// WithSerialOut sets the byte sent to the serial collaborator when the
// state is entered. Zero means no serial output.
func WithSerialOut(b byte) StateOption {
	return func(c *stateConfig) { c.serialOut = b }
}

// WithIntegerOut sets the integer code emitted when the state is entered,
// used e.g. to select a sound. Zero means no output.
func WithIntegerOut(code int) StateOption {
	return func(c *stateConfig) { c.integerOut = code }
}

// AddState defines or fully replaces the named state. Re-adding an
// existing name resets its row, timer and outputs to defaults before
// applying the options, which lets a trial template be rebuilt across
// repeated calls without reallocating indices. Transition targets that do
// not exist yet are auto-created.
func (m *StateMatrix) AddState(name string, opts ...StateOption) error {
	cfg := stateConfig{timer: domain.InfiniteTime}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timer < 0 {
		return domain.Validationf("state %q: timer duration must be non-negative", name)
	}

	m.ensureStart()
	idx, ok := m.states.Index(name)
	if !ok {
		idx = m.appendState(name)
	}

	row := m.defaultRow(idx)
	for eventName, targetName := range cfg.transitions {
		col, ok := m.events[eventName]
		if !ok || col == domain.ForcedEvent {
			return domain.Validationf("state %q: unknown event %q", name, eventName)
		}
		target, ok := m.states.Index(targetName)
		if !ok {
			target = m.appendState(targetName)
		}
		row[col] = target
	}

	m.rows[idx] = row
	m.timers[idx] = cfg.timer

	out := m.defaultOutputs()
	for _, outputName := range cfg.outputsOn {
		ch, ok := m.outputs[outputName]
		if !ok {
			return domain.Validationf("state %q: unknown output %q", name, outputName)
		}
		out[ch] = domain.OutputOn
	}
	for _, outputName := range cfg.outputsOff {
		ch, ok := m.outputs[outputName]
		if !ok {
			return domain.Validationf("state %q: unknown output %q", name, outputName)
		}
		out[ch] = domain.OutputOff
	}
	m.outRows[idx] = out
	m.serial[idx] = cfg.serialOut
	m.intOut[idx] = cfg.integerOut

	for _, timerName := range cfg.triggers {
		t := m.extraTimerIndex(timerName)
		if t < 0 {
			return fmt.Errorf("state %q: no extra timer called %q", name, timerName)
		}
		m.extraTriggers[t] = idx
	}

	m.finalized = false
	return nil
}

// AddExtraTimer declares an independently running timer occupying one
// additional event column. Extra timers change the matrix shape, so they
// must all be declared before the first state.
func (m *StateMatrix) AddExtraTimer(name string, duration float64) error {
	if m.states.Len() > 0 {
		return domain.ErrExtraTimersFirst
	}
	if m.extraTimerIndex(name) >= 0 {
		return fmt.Errorf("extra timer %q has already been defined", name)
	}
	if _, taken := m.events[name]; taken {
		return fmt.Errorf("extra timer %q collides with an event name", name)
	}
	m.events[name] = m.nInputEvents + len(m.extraNames)
	m.extraNames = append(m.extraNames, name)
	m.extraDurations = append(m.extraDurations, duration)
	// Triggered by START until an AddState call rebinds it.
	m.extraTriggers = append(m.extraTriggers, 0)
	m.finalized = false
	return nil
}

// SetExtraTimerDuration changes the duration of an existing extra timer,
// e.g. between trials.
func (m *StateMatrix) SetExtraTimerDuration(name string, duration float64) error {
	t := m.extraTimerIndex(name)
	if t < 0 {
		return fmt.Errorf("no extra timer called %q", name)
	}
	m.extraDurations[t] = duration
	m.finalized = false
	return nil
}

func (m *StateMatrix) extraTimerIndex(name string) int {
	for i, n := range m.extraNames {
		if n == name {
			return i
		}
	}
	return -1
}

// ResetTransitions restores every known state to its defaults (self-loop,
// infinite timer, no output changes) while preserving all state indices.
// The START state keeps its managed bracketing behavior (zero timer,
// Tup to state 1) so a rebuilt template still auto-advances.
func (m *StateMatrix) ResetTransitions() {
	for idx := 0; idx < m.states.Len(); idx++ {
		m.rows[idx] = m.defaultRow(idx)
		m.timers[idx] = domain.InfiniteTime
		m.outRows[idx] = m.defaultOutputs()
		m.serial[idx] = 0
		m.intOut[idx] = 0
	}
	if m.states.Len() > 0 {
		m.timers[0] = 0
		m.rows[0][m.events[TimerEvent]] = 1
	}
	m.finalized = false
}

// finalize appends the END state if needed and validates the definition.
// It runs once after any mutation; repeated finalizer calls are no-ops.
func (m *StateMatrix) finalize() error {
	if m.finalized {
		return nil
	}
	m.ensureStart()
	m.ensureEnd()

	n := m.states.Len()
	nEvents := m.nEvents()
	if len(m.rows) != n || len(m.timers) != n || len(m.outRows) != n ||
		len(m.serial) != n || len(m.intOut) != n {
		return domain.Validationf("shape mismatch: %d states, %d rows, %d timers, %d output rows",
			n, len(m.rows), len(m.timers), len(m.outRows))
	}
	for idx, row := range m.rows {
		if len(row) != nEvents {
			return domain.Validationf("state %s has %d event columns, want %d",
				m.stateLabel(idx), len(row), nEvents)
		}
		for col, target := range row {
			if target < 0 || target >= n {
				return domain.Validationf("state %s, event %s: target %d out of range 0..%d",
					m.stateLabel(idx), m.eventLabel(col), target, n-1)
			}
		}
	}
	for idx, out := range m.outRows {
		if len(out) != m.nOutputs {
			return domain.Validationf("state %s has %d output directives, want %d",
				m.stateLabel(idx), len(out), m.nOutputs)
		}
		for ch, d := range out {
			if !d.Valid() {
				return domain.Validationf("state %s, output %d: illegal directive %d",
					m.stateLabel(idx), ch, int(d))
			}
		}
	}
	for t, trigger := range m.extraTriggers {
		if trigger < 0 || trigger >= n {
			return domain.Validationf("extra timer %q: trigger state %d out of range",
				m.extraNames[t], trigger)
		}
	}

	m.finalized = true
	return nil
}

func (m *StateMatrix) stateLabel(idx int) string {
	if name, ok := m.states.Name(idx); ok {
		return fmt.Sprintf("%q [%d]", name, idx)
	}
	return fmt.Sprintf("[%d]", idx)
}

func (m *StateMatrix) eventLabel(col int) string {
	for name, c := range m.events {
		if c == col {
			return name
		}
	}
	return fmt.Sprintf("[%d]", col)
}

// Matrix finalizes the definition and returns the transition table,
// one row per state and one column per event.
func (m *StateMatrix) Matrix() ([][]int, error) {
	if err := m.finalize(); err != nil {
		return nil, err
	}
	out := make([][]int, len(m.rows))
	for i, row := range m.rows {
		out[i] = append([]int(nil), row...)
	}
	return out, nil
}

// Outputs finalizes the definition and returns the per-state output
// directives.
func (m *StateMatrix) Outputs() ([][]domain.OutputDirective, error) {
	if err := m.finalize(); err != nil {
		return nil, err
	}
	out := make([][]domain.OutputDirective, len(m.outRows))
	for i, row := range m.outRows {
		out[i] = append([]domain.OutputDirective(nil), row...)
	}
	return out, nil
}

// Timers finalizes the definition and returns the per-state timer
// durations in seconds. States that never time out carry +Inf.
func (m *StateMatrix) Timers() ([]float64, error) {
	if err := m.finalize(); err != nil {
		return nil, err
	}
	return append([]float64(nil), m.timers...), nil
}

// SerialOutputs finalizes the definition and returns the per-state serial
// bytes (zero for none).
func (m *StateMatrix) SerialOutputs() ([]byte, error) {
	if err := m.finalize(); err != nil {
		return nil, err
	}
	return append([]byte(nil), m.serial...), nil
}

// IntegerOutputs finalizes the definition and returns the per-state
// integer output codes (zero for none).
func (m *StateMatrix) IntegerOutputs() ([]int, error) {
	if err := m.finalize(); err != nil {
		return nil, err
	}
	return append([]int(nil), m.intOut...), nil
}

// TimerEventIndex returns the matrix column of the Tup event.
func (m *StateMatrix) TimerEventIndex() int {
	return m.events[TimerEvent]
}

// ExtraTimerDurations returns the duration of each extra timer, in
// declaration order.
func (m *StateMatrix) ExtraTimerDurations() []float64 {
	return append([]float64(nil), m.extraDurations...)
}

// ExtraTimerTriggers returns, for each extra timer, the state index whose
// entry starts it.
func (m *StateMatrix) ExtraTimerTriggers() []int {
	return append([]int(nil), m.extraTriggers...)
}

// NumStates returns the number of states currently known to the builder,
// not counting an END state that has not been appended yet.
func (m *StateMatrix) NumStates() int {
	return m.states.Len()
}

// StateIndex returns the index assigned to a state name.
func (m *StateMatrix) StateIndex(name string) (int, bool) {
	return m.states.Index(name)
}

// StateName returns the name of the state at index.
func (m *StateMatrix) StateName(index int) (string, bool) {
	return m.states.Name(index)
}

// EventIndex returns the matrix column for an event name.
func (m *StateMatrix) EventIndex(name string) (int, bool) {
	col, ok := m.events[name]
	return col, ok
}

// OutputIndex returns the channel index for an output name.
func (m *StateMatrix) OutputIndex(name string) (int, bool) {
	ch, ok := m.outputs[name]
	return ch, ok
}
