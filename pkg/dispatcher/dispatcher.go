// Package dispatcher bridges a trial-structured paradigm and the state
// machine. It starts each trial by forcing the machine out of its parking
// state, watches for the machine to reach a prepare-next-trial state, and
// swaps in the freshly built matrix for the following trial.
package dispatcher

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openrig/trialctl/internal/logging"
	"github.com/openrig/trialctl/internal/metrics"
	"github.com/openrig/trialctl/pkg/domain"
	"github.com/openrig/trialctl/pkg/machine"
)

// DefaultPollingInterval is how often the dispatcher polls the machine
// for trial-boundary detection and status ticks.
const DefaultPollingInterval = 100 * time.Millisecond

// PrepareNextFunc builds the automaton definition for the given trial
// number. It is called between trials, while the machine is parked.
type PrepareNextFunc func(trial int) (machine.Config, error)

// Status is a dispatcher snapshot, emitted on every polling tick.
type Status struct {
	Elapsed      float64 `json:"elapsed"`
	CurrentState int     `json:"current_state"`
	EventCount   int     `json:"event_count"`
	Trial        int     `json:"trial"`
	Running      bool    `json:"running"`
}

// Dispatcher is the trial controller. Construct with New; it subscribes
// to the machine's notifications on construction.
type Dispatcher struct {
	machine     *machine.Machine
	prepareNext PrepareNextFunc

	logger   *slog.Logger
	met      *metrics.Metrics
	interval time.Duration
	tickFn   func(Status)

	// prepareStates overrides the default trial boundary (the machine's
	// last state) when non-nil.
	prepareStates map[int]bool

	mu         sync.Mutex
	running    bool
	preparing  bool
	trial      int // -1 before the first trial
	epoch      time.Time
	eventCount int
	done       chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics wires Prometheus counters into the machine notifications.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.met = m }
}

// WithPollingInterval sets how often the dispatcher polls the machine.
func WithPollingInterval(interval time.Duration) Option {
	return func(d *Dispatcher) { d.interval = interval }
}

// WithTickFunc registers a callback invoked with a Status snapshot on
// every polling tick.
func WithTickFunc(fn func(Status)) Option {
	return func(d *Dispatcher) { d.tickFn = fn }
}

// WithPrepareStates overrides the states that mark a trial boundary. By
// default the machine's last (END) state does.
func WithPrepareStates(states ...int) Option {
	return func(d *Dispatcher) {
		d.prepareStates = make(map[int]bool, len(states))
		for _, s := range states {
			d.prepareStates[s] = true
		}
	}
}

// New creates a dispatcher driving m. prepareNext may be nil, in which
// case trials are started manually with StartTrial.
func New(m *machine.Machine, prepareNext PrepareNextFunc, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		machine:     m,
		prepareNext: prepareNext,
		logger:      logging.NewNop(),
		interval:    DefaultPollingInterval,
		trial:       -1,
	}
	for _, opt := range opts {
		opt(d)
	}

	m.OnEventProcessed(func(rec domain.EventRecord) {
		d.mu.Lock()
		d.eventCount++
		d.mu.Unlock()
		if d.met != nil {
			d.met.EventsProcessed.Inc()
		}
	})
	if d.met != nil {
		m.OnStateChanged(func(int) { d.met.Transitions.Inc() })
		m.OnOutputChanged(func(int, bool) { d.met.OutputChanges.Inc() })
	}
	return d
}

// Start configures the machine for trial 0 if needed, starts it, begins
// the first trial and launches the polling loop.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	if d.epoch.IsZero() {
		d.epoch = time.Now()
	}
	d.running = true
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	if !d.machine.Configured() {
		if d.prepareNext == nil {
			d.markStopped()
			return domain.ErrNotConfigured
		}
		if err := d.install(0); err != nil {
			d.markStopped()
			return err
		}
	}
	if err := d.machine.Start(); err != nil {
		d.markStopped()
		return err
	}
	if err := d.StartTrial(); err != nil {
		d.markStopped()
		return err
	}

	go d.loop(done)
	d.logger.Info("dispatcher started")
	return nil
}

// Stop parks the machine in its END state and halts it, then stops the
// polling loop. The trial counter and event log are preserved.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.done)
	d.mu.Unlock()

	// Safe even if no matrix was ever installed: ForceState degrades to
	// a warning no-op on an unconfigured machine.
	if err := d.machine.ForceState(-1); err != nil {
		d.logger.Error("failed to park machine", "error", err)
	}
	d.machine.Stop()
	d.logger.Info("dispatcher stopped", "trials", d.Trial()+1)
}

func (d *Dispatcher) markStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// StartTrial begins the next trial: it increments the trial counter and
// forces the machine into state 0, whose zero timer immediately advances
// it into the first behavioral state.
func (d *Dispatcher) StartTrial() error {
	d.mu.Lock()
	d.trial++
	trial := d.trial
	d.preparing = false
	d.mu.Unlock()

	if err := d.machine.ForceState(0); err != nil {
		return fmt.Errorf("starting trial %d: %w", trial, err)
	}
	if d.met != nil {
		d.met.TrialsStarted.Inc()
	}
	d.logger.Info("trial started", "trial", trial)
	return nil
}

// Apply installs a complete definition on a stopped machine.
func (d *Dispatcher) Apply(cfg machine.Config) error {
	return d.machine.Apply(cfg)
}

// install builds and applies the definition for a trial.
func (d *Dispatcher) install(trial int) error {
	cfg, err := d.prepareNext(trial)
	if err != nil {
		return fmt.Errorf("preparing trial %d: %w", trial, err)
	}
	if err := d.machine.Apply(cfg); err != nil {
		return fmt.Errorf("installing matrix for trial %d: %w", trial, err)
	}
	d.logger.Debug("state matrix updated", "trial", trial)
	return nil
}

// Trial returns the current trial number, -1 before the first trial.
func (d *Dispatcher) Trial() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trial
}

// Status returns a snapshot of the session.
func (d *Dispatcher) Status() Status {
	state := d.machine.CurrentState()
	d.mu.Lock()
	defer d.mu.Unlock()
	elapsed := 0.0
	if !d.epoch.IsZero() {
		elapsed = time.Since(d.epoch).Seconds()
	}
	return Status{
		Elapsed:      elapsed,
		CurrentState: state,
		EventCount:   d.eventCount,
		Trial:        d.trial,
		Running:      d.running,
	}
}

func (d *Dispatcher) loop(done <-chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

// tick emits a status snapshot and, when the machine has parked in a
// trial-boundary state, prepares and starts the next trial.
func (d *Dispatcher) tick() {
	if d.tickFn != nil {
		d.tickFn(d.Status())
	}

	info := d.machine.Info()
	if !info.Running {
		return
	}
	boundary := info.CurrentState == info.NumStates-1
	if d.prepareStates != nil {
		boundary = d.prepareStates[info.CurrentState]
	}

	d.mu.Lock()
	start := boundary && !d.preparing && d.running && d.prepareNext != nil
	if start {
		d.preparing = true
	}
	trial := d.trial + 1
	d.mu.Unlock()
	if !start {
		return
	}

	if err := d.advance(trial); err != nil {
		d.logger.Error("failed to prepare next trial", "trial", trial, "error", err)
		d.mu.Lock()
		d.preparing = false
		d.mu.Unlock()
	}
}

// advance swaps in the next trial's matrix and starts the trial. The
// machine is stopped for the swap because configuration setters refuse to
// run on a running machine.
func (d *Dispatcher) advance(trial int) error {
	d.machine.Stop()
	if err := d.install(trial); err != nil {
		return err
	}
	if err := d.machine.Start(); err != nil {
		return err
	}
	return d.StartTrial()
}
