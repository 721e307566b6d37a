package trialctl

import (
	"github.com/openrig/trialctl/pkg/machine"
	"github.com/openrig/trialctl/pkg/matrix"
	"github.com/openrig/trialctl/pkg/template"
)

// NewMachine builds a machine configured from a finalized definition,
// typically a *matrix.StateMatrix.
func NewMachine(cfg machine.Config, opts ...machine.Option) (*machine.Machine, error) {
	m := machine.New(opts...)
	if err := m.Apply(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// BuildTemplate loads a session file and assembles its state matrix.
func BuildTemplate(path string) (*template.Config, *matrix.StateMatrix, error) {
	cfg, err := template.Load(path)
	if err != nil {
		return nil, nil, err
	}
	sm, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return cfg, sm, nil
}
