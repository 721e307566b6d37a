package machine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/openrig/trialctl/internal/logging"
	"github.com/openrig/trialctl/pkg/domain"
)

// Machine is the state-machine runtime. Construct with New, configure
// with the setters (or Apply), then Start it and drive it with
// ProcessInput, timer expirations and forced transitions.
type Machine struct {
	mu sync.Mutex

	logger *slog.Logger

	stateMatrix [][]int
	stateTimers []float64
	stateOut    [][]domain.OutputDirective
	integerOut  []int
	serialOut   []byte
	timerEvent  int

	numStates  int
	numEvents  int
	numOutputs int

	current      int
	running      bool
	outputStates []bool

	stateTimer    *time.Timer
	stateTimerGen uint64

	extras []extraTimer

	notify notifier
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger used for warnings and debug traces.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// New creates an unconfigured machine.
func New(opts ...Option) *Machine {
	m := &Machine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetMatrix installs the transition table. Each row is a state, each
// column an event, and each value the target state index. timerEventIndex
// names the column looked up when the state timer expires; pass -1 for
// the last column.
func (m *Machine) SetMatrix(stateMatrix [][]int, timerEventIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return domain.ErrRunning
	}
	if len(stateMatrix) == 0 || len(stateMatrix[0]) == 0 {
		return domain.Validationf("state matrix cannot be empty")
	}
	n := len(stateMatrix)
	nEvents := len(stateMatrix[0])
	for idx, row := range stateMatrix {
		if len(row) != nEvents {
			return domain.Validationf("state matrix row %d has %d columns, want %d", idx, len(row), nEvents)
		}
		for _, target := range row {
			if target < 0 || target >= n {
				return domain.Validationf("state matrix contains target %d, must be 0 to %d", target, n-1)
			}
		}
	}
	if timerEventIndex == -1 {
		timerEventIndex = nEvents - 1
	}
	if timerEventIndex < 0 || timerEventIndex >= nEvents {
		return &domain.RangeError{What: "timer event", Index: timerEventIndex, N: nEvents}
	}

	m.stateMatrix = stateMatrix
	m.numStates = n
	m.numEvents = nEvents
	m.timerEvent = timerEventIndex

	// Re-fit timers to the new state count, keeping what overlaps.
	if m.stateTimers == nil {
		m.stateTimers = infiniteTimers(n)
	} else if len(m.stateTimers) != n {
		old := m.stateTimers
		m.stateTimers = infiniteTimers(n)
		copy(m.stateTimers, old)
	}
	return nil
}

// SetTimers installs the per-state timer durations in seconds. Use
// domain.InfiniteTime for states that never time out.
func (m *Machine) SetTimers(stateTimers []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return domain.ErrRunning
	}
	if m.stateMatrix != nil && len(stateTimers) != m.numStates {
		return domain.Validationf("got %d state timers, want %d", len(stateTimers), m.numStates)
	}
	m.stateTimers = stateTimers
	return nil
}

// SetOutputs installs the per-state output directives and resets every
// output channel to off.
func (m *Machine) SetOutputs(stateOutputs [][]domain.OutputDirective) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return domain.ErrRunning
	}
	if m.stateMatrix != nil && len(stateOutputs) != m.numStates {
		return domain.Validationf("got %d output rows, want %d", len(stateOutputs), m.numStates)
	}
	nOutputs := 0
	if len(stateOutputs) > 0 {
		nOutputs = len(stateOutputs[0])
	}
	for idx, row := range stateOutputs {
		if len(row) != nOutputs {
			return domain.Validationf("output row %d has %d channels, want %d", idx, len(row), nOutputs)
		}
		for ch, d := range row {
			if !d.Valid() {
				return domain.Validationf("state %d, output %d: illegal directive %d", idx, ch, int(d))
			}
		}
	}
	m.stateOut = stateOutputs
	m.numOutputs = nOutputs
	m.outputStates = make([]bool, nOutputs)
	return nil
}

// SetIntegerOutputs installs the per-state integer codes (zero for none).
func (m *Machine) SetIntegerOutputs(integerOutputs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return domain.ErrRunning
	}
	m.integerOut = integerOutputs
	return nil
}

// SetSerialOutputs installs the per-state serial bytes (zero for none).
func (m *Machine) SetSerialOutputs(serialOutputs []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return domain.ErrRunning
	}
	m.serialOut = serialOutputs
	return nil
}

// SetExtraTimers installs the independently running timers. Timer i
// occupies matrix column timerEventIndex+1+i, starts when its trigger
// state is entered, and fires its column at expiry no matter what state
// the machine is in by then.
func (m *Machine) SetExtraTimers(durations []float64, triggers []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return domain.ErrRunning
	}
	if len(durations) != len(triggers) {
		return domain.Validationf("got %d extra timer durations but %d triggers", len(durations), len(triggers))
	}
	if m.stateMatrix != nil && m.timerEvent+1+len(durations) > m.numEvents {
		return domain.Validationf("matrix has no event columns for %d extra timers", len(durations))
	}
	extras := make([]extraTimer, len(durations))
	for i := range durations {
		if m.stateMatrix != nil && (triggers[i] < 0 || triggers[i] >= m.numStates) {
			return &domain.RangeError{What: "state", Index: triggers[i], N: m.numStates}
		}
		extras[i] = extraTimer{
			duration: durations[i],
			trigger:  triggers[i],
			column:   m.timerEvent + 1 + i,
		}
	}
	m.extras = extras
	return nil
}

// configured reports whether matrix, timers and outputs are all set.
// Callers hold m.mu.
func (m *Machine) configured() bool {
	return m.stateMatrix != nil && m.stateOut != nil && m.stateTimers != nil
}

// Start begins execution. The machine enters whatever state it was left
// in, by convention the last (END) state, without emitting notifications;
// force it into state 0 or 1 to begin a trial.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured() {
		return domain.ErrNotConfigured
	}
	m.running = true
	m.current = m.numStates - 1
	m.logger.Debug("state machine started", "states", m.numStates, "events", m.numEvents)
	return nil
}

// Stop halts execution, canceling the state timer and all extra timers.
// Configuration is preserved.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.cancelStateTimer()
	m.cancelExtraTimers()
	m.logger.Debug("state machine stopped", "state", m.current)
}

// Reset stops the machine and clears all configuration.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.cancelStateTimer()
	m.cancelExtraTimers()
	m.stateMatrix = nil
	m.stateTimers = nil
	m.stateOut = nil
	m.integerOut = nil
	m.serialOut = nil
	m.extras = nil
	m.numStates = 0
	m.numEvents = 0
	m.numOutputs = 0
	m.current = 0
	m.outputStates = nil
}

// ProcessInput handles one external input event. It is a no-op when the
// machine is not running. Every processed event emits exactly one
// event-processed notification, even when the lookup self-loops.
func (m *Machine) ProcessInput(event int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	if !m.configured() {
		return domain.ErrNotConfigured
	}
	if event < 0 || event >= m.numEvents {
		return &domain.RangeError{What: "input event", Index: event, N: m.numEvents}
	}
	m.processEvent(event)
	return nil
}

// processEvent resolves and applies one event. Callers hold m.mu.
func (m *Machine) processEvent(event int) {
	next := m.stateMatrix[m.current][event]
	m.notify.eventProcessed(domain.EventRecord{
		Event:     event,
		Timestamp: time.Now(),
		NextState: next,
	})
	if next != m.current {
		m.enterState(next)
	}
}

// enterState performs the full transition sequence: cancel the old state
// timer, apply output directives, emit integer/serial outputs, start
// extra timers triggered by the new state, arm its timer, and notify.
// Callers hold m.mu.
func (m *Machine) enterState(stateIndex int) {
	m.current = stateIndex
	m.cancelStateTimer()
	m.applyOutputs()
	m.applyIntegerOutput()
	m.applySerialOutput()
	m.triggerExtraTimers()
	m.startStateTimer()
	m.notify.stateChanged(stateIndex)
}

// applyOutputs applies the current state's directives, notifying only for
// channels whose boolean value actually flips.
func (m *Machine) applyOutputs() {
	for ch, directive := range m.stateOut[m.current] {
		switch directive {
		case domain.OutputOn:
			if !m.outputStates[ch] {
				m.outputStates[ch] = true
				m.notify.outputChanged(ch, true)
			}
		case domain.OutputOff:
			if m.outputStates[ch] {
				m.outputStates[ch] = false
				m.notify.outputChanged(ch, false)
			}
		}
		// NoChange leaves the channel as is, forced values included.
	}
}

func (m *Machine) applyIntegerOutput() {
	if m.integerOut == nil {
		return
	}
	if code := m.integerOut[m.current]; code != 0 {
		m.notify.integerOutput(code)
	}
}

func (m *Machine) applySerialOutput() {
	if m.serialOut == nil {
		return
	}
	if b := m.serialOut[m.current]; b != 0 {
		m.notify.serialOutput(b)
	}
}

// ForceState transitions to stateIndex, bypassing the matrix lookup.
// Index -1 means the last (END) state. On an unconfigured machine this
// degrades to a warning no-op so unconditional cleanup paths can call it
// safely. The transition only takes effect while running and when the
// target differs from the current state; it is reported as an
// event-processed notification with the Forced pseudo-event.
func (m *Machine) ForceState(stateIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured() {
		m.logger.Warn("state machine is not configured; no state was forced")
		return nil
	}
	if stateIndex == -1 {
		stateIndex = m.numStates - 1
	}
	if stateIndex < 0 || stateIndex >= m.numStates {
		return &domain.RangeError{What: "state", Index: stateIndex, N: m.numStates}
	}
	if m.running && stateIndex != m.current {
		m.notify.eventProcessed(domain.EventRecord{
			Event:     domain.ForcedEvent,
			Timestamp: time.Now(),
			NextState: stateIndex,
		})
		m.enterState(stateIndex)
	}
	return nil
}

// ForceOutput sets one output channel directly, independent of the
// current state. The forced value persists through transitions whose
// directive for the channel is NoChange. On an unconfigured machine this
// degrades to a warning no-op.
func (m *Machine) ForceOutput(output int, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured() {
		m.logger.Warn("state machine is not configured; no output was forced")
		return nil
	}
	if output < 0 || output >= m.numOutputs {
		return &domain.RangeError{What: "output", Index: output, N: m.numOutputs}
	}
	if m.outputStates[output] != value {
		m.outputStates[output] = value
		m.notify.outputChanged(output, value)
	}
	return nil
}

func infiniteTimers(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = domain.InfiniteTime
	}
	return t
}
