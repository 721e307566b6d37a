package machine

import (
	"fmt"

	"github.com/openrig/trialctl/pkg/domain"
)

// Config is the finalized automaton definition a machine can be
// configured from. *matrix.StateMatrix satisfies it.
type Config interface {
	Matrix() ([][]int, error)
	Outputs() ([][]domain.OutputDirective, error)
	Timers() ([]float64, error)
	SerialOutputs() ([]byte, error)
	IntegerOutputs() ([]int, error)
	TimerEventIndex() int
	ExtraTimerDurations() []float64
	ExtraTimerTriggers() []int
}

// Apply installs a complete definition in one call. The machine must not
// be running.
func (m *Machine) Apply(cfg Config) error {
	mat, err := cfg.Matrix()
	if err != nil {
		return fmt.Errorf("finalizing matrix: %w", err)
	}
	outputs, err := cfg.Outputs()
	if err != nil {
		return fmt.Errorf("finalizing outputs: %w", err)
	}
	timers, err := cfg.Timers()
	if err != nil {
		return fmt.Errorf("finalizing timers: %w", err)
	}
	serial, err := cfg.SerialOutputs()
	if err != nil {
		return fmt.Errorf("finalizing serial outputs: %w", err)
	}
	integers, err := cfg.IntegerOutputs()
	if err != nil {
		return fmt.Errorf("finalizing integer outputs: %w", err)
	}

	if err := m.SetMatrix(mat, cfg.TimerEventIndex()); err != nil {
		return err
	}
	if err := m.SetTimers(timers); err != nil {
		return err
	}
	if err := m.SetOutputs(outputs); err != nil {
		return err
	}
	if err := m.SetIntegerOutputs(integers); err != nil {
		return err
	}
	if err := m.SetSerialOutputs(serial); err != nil {
		return err
	}
	return m.SetExtraTimers(cfg.ExtraTimerDurations(), cfg.ExtraTimerTriggers())
}
