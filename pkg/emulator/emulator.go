// Package emulator feeds input events into a state machine without
// hardware. Each named input maps to the event pair "{name}in" /
// "{name}out"; pressing an input fires the rising edge, releasing it the
// falling edge. A Script replays a timed sequence of edges, which is how
// demos and integration tests drive a whole session.
package emulator

import (
	"context"
	"fmt"
	"time"

	"github.com/openrig/trialctl/pkg/machine"
)

// Emulator maps input names to event indices on one machine.
type Emulator struct {
	machine *machine.Machine
	inputs  map[string]int
}

// New creates an emulator for the named inputs, indexed as in the matrix
// builder: input i occupies event columns 2i ("in") and 2i+1 ("out").
func New(m *machine.Machine, inputs map[string]int) *Emulator {
	return &Emulator{machine: m, inputs: inputs}
}

// Press fires the rising-edge event of an input.
func (e *Emulator) Press(input string) error {
	idx, ok := e.inputs[input]
	if !ok {
		return fmt.Errorf("unknown input %q", input)
	}
	return e.machine.ProcessInput(2 * idx)
}

// Release fires the falling-edge event of an input.
func (e *Emulator) Release(input string) error {
	idx, ok := e.inputs[input]
	if !ok {
		return fmt.Errorf("unknown input %q", input)
	}
	return e.machine.ProcessInput(2*idx + 1)
}

// Step is one scripted edge: at offset At from the script start, press or
// release Input.
type Step struct {
	At      time.Duration
	Input   string
	Release bool
}

// Run replays a script, sleeping between steps. Steps must be ordered by
// At. Run returns early if the context is canceled.
func (e *Emulator) Run(ctx context.Context, steps []Step) error {
	start := time.Now()
	for _, step := range steps {
		wait := step.At - time.Since(start)
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		var err error
		if step.Release {
			err = e.Release(step.Input)
		} else {
			err = e.Press(step.Input)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
