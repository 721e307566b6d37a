package machine

import (
	"math"
	"time"
)

// extraTimer is an independently running timer with its own event column.
// It starts when its trigger state is entered and fires exactly once at
// expiry, regardless of the transitions that happen in between.
type extraTimer struct {
	duration float64
	trigger  int
	column   int

	active bool
	gen    uint64
	timer  *time.Timer
}

// startStateTimer arms the single-shot timer for the current state.
// States with an infinite duration never time out. Callers hold m.mu.
func (m *Machine) startStateTimer() {
	d := m.stateTimers[m.current]
	if math.IsInf(d, 1) || d < 0 {
		return
	}
	gen := m.stateTimerGen
	m.stateTimer = time.AfterFunc(seconds(d), func() {
		m.onStateTimerExpired(gen)
	})
}

// cancelStateTimer stops the active state timer. Bumping the generation
// invalidates a callback that already fired and is waiting on the mutex,
// so a stale timer can never fire into a newer state. Callers hold m.mu.
func (m *Machine) cancelStateTimer() {
	m.stateTimerGen++
	if m.stateTimer != nil {
		m.stateTimer.Stop()
		m.stateTimer = nil
	}
}

// onStateTimerExpired funnels a timer expiry through the same lookup path
// as any external input.
func (m *Machine) onStateTimerExpired(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.stateTimerGen || !m.running || !m.configured() {
		return
	}
	m.processEvent(m.timerEvent)
}

// triggerExtraTimers starts every extra timer bound to the current state.
// A timer that is already running is left alone: re-entering the trigger
// state does not reset the countdown. Callers hold m.mu.
func (m *Machine) triggerExtraTimers() {
	for i := range m.extras {
		et := &m.extras[i]
		if et.trigger != m.current || et.active {
			continue
		}
		et.active = true
		et.gen++
		gen := et.gen
		index := i
		et.timer = time.AfterFunc(seconds(et.duration), func() {
			m.onExtraTimerExpired(index, gen)
		})
		m.logger.Debug("extra timer started", "column", et.column, "duration", et.duration)
	}
}

func (m *Machine) onExtraTimerExpired(index int, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	et := &m.extras[index]
	if gen != et.gen || !et.active {
		return
	}
	et.active = false
	et.timer = nil
	if !m.running || !m.configured() {
		return
	}
	m.processEvent(et.column)
}

// cancelExtraTimers stops every running extra timer. Callers hold m.mu.
func (m *Machine) cancelExtraTimers() {
	for i := range m.extras {
		et := &m.extras[i]
		et.gen++
		et.active = false
		if et.timer != nil {
			et.timer.Stop()
			et.timer = nil
		}
	}
}

func seconds(d float64) time.Duration {
	return time.Duration(d * float64(time.Second))
}
