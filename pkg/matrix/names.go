package matrix

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Names carries the plain name-to-index mappings behind a finalized
// matrix. The binary arrays alone are not human-interpretable, so these
// maps are what a save collaborator persists for reproducibility.
type Names struct {
	Events  map[string]int `yaml:"events" json:"events"`
	Outputs map[string]int `yaml:"outputs" json:"outputs"`
	States  map[string]int `yaml:"states" json:"states"`
}

// Names finalizes the definition and returns the exportable mappings.
// The events map includes the reserved "Forced" pseudo-event at -1.
func (m *StateMatrix) Names() (*Names, error) {
	if err := m.finalize(); err != nil {
		return nil, err
	}
	events := make(map[string]int, len(m.events))
	for k, v := range m.events {
		events[k] = v
	}
	outputs := make(map[string]int, len(m.outputs))
	for k, v := range m.outputs {
		outputs[k] = v
	}
	return &Names{
		Events:  events,
		Outputs: outputs,
		States:  m.states.Names(),
	}, nil
}

// EncodeNames writes the name mappings as YAML.
func (m *StateMatrix) EncodeNames(w io.Writer) error {
	names, err := m.Names()
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(names)
}
