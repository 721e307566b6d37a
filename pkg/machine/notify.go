package machine

import "github.com/openrig/trialctl/pkg/domain"

// notifier delivers notifications to subscribers in registration order.
// Delivery is synchronous, on the goroutine that processed the event; a
// handler must not call back into the machine.
type notifier struct {
	onStateChanged   []func(newState int)
	onOutputChanged  []func(output int, value bool)
	onIntegerOutput  []func(code int)
	onSerialOutput   []func(b byte)
	onEventProcessed []func(rec domain.EventRecord)
}

// OnStateChanged registers a handler called after every real transition
// with the new state index.
func (m *Machine) OnStateChanged(fn func(newState int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify.onStateChanged = append(m.notify.onStateChanged, fn)
}

// OnOutputChanged registers a handler called whenever an output channel's
// boolean value actually flips.
func (m *Machine) OnOutputChanged(fn func(output int, value bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify.onOutputChanged = append(m.notify.onOutputChanged, fn)
}

// OnIntegerOutput registers a handler for states with a nonzero integer
// code, e.g. a sound player.
func (m *Machine) OnIntegerOutput(fn func(code int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify.onIntegerOutput = append(m.notify.onIntegerOutput, fn)
}

// OnSerialOutput registers a handler for states with a nonzero serial
// byte, e.g. a hardware driver.
func (m *Machine) OnSerialOutput(fn func(b byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify.onSerialOutput = append(m.notify.onSerialOutput, fn)
}

// OnEventProcessed registers a handler called once for every processed
// event, self-loops included, e.g. a trial logger.
func (m *Machine) OnEventProcessed(fn func(rec domain.EventRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify.onEventProcessed = append(m.notify.onEventProcessed, fn)
}

func (n *notifier) stateChanged(newState int) {
	for _, fn := range n.onStateChanged {
		fn(newState)
	}
}

func (n *notifier) outputChanged(output int, value bool) {
	for _, fn := range n.onOutputChanged {
		fn(output, value)
	}
}

func (n *notifier) integerOutput(code int) {
	for _, fn := range n.onIntegerOutput {
		fn(code)
	}
}

func (n *notifier) serialOutput(b byte) {
	for _, fn := range n.onSerialOutput {
		fn(b)
	}
}

func (n *notifier) eventProcessed(rec domain.EventRecord) {
	for _, fn := range n.onEventProcessed {
		fn(rec)
	}
}
