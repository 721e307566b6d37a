// Package template loads rig and trial-template configuration from YAML:
// the named input and output channels of a rig, extra timers, the state
// list of a trial, and free-form paradigm parameters.
package template

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/openrig/trialctl/pkg/matrix"
)

// ExtraTimer declares one independently running timer.
type ExtraTimer struct {
	Name     string  `yaml:"name"`
	Duration float64 `yaml:"duration"`
}

// State declares one state of the trial template. A nil Timer means the
// state never times out.
type State struct {
	Name        string            `yaml:"name"`
	Timer       *float64          `yaml:"timer"`
	Transitions map[string]string `yaml:"transitions"`
	OutputsOn   []string          `yaml:"on"`
	OutputsOff  []string          `yaml:"off"`
	Trigger     []string          `yaml:"trigger"`
	SerialOut   byte              `yaml:"serial"`
	IntegerOut  int               `yaml:"sound"`
}

// Config is a complete session file.
type Config struct {
	// Inputs maps input channel names to their indices. Indices must be
	// contiguous from 0, since each input occupies a fixed event column
	// pair.
	Inputs map[string]int `yaml:"inputs"`

	// Outputs maps output channel names to their indices.
	Outputs map[string]int `yaml:"outputs"`

	ExtraTimers []ExtraTimer `yaml:"extratimers"`
	States      []State      `yaml:"states"`

	// Params carries free-form paradigm parameters; decode them into a
	// typed struct with DecodeParams.
	Params map[string]any `yaml:"params"`
}

// Load reads and validates a session file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a session file.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural constraints a Build call relies on.
// Name resolution inside states (events, outputs, timers) is left to the
// matrix builder, which reports it with full context.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return fmt.Errorf("template declares no inputs")
	}
	seen := make(map[int]string, len(c.Inputs))
	for name, idx := range c.Inputs {
		if other, dup := seen[idx]; dup {
			return fmt.Errorf("inputs %q and %q share index %d", name, other, idx)
		}
		seen[idx] = name
	}
	for i := 0; i < len(c.Inputs); i++ {
		if _, ok := seen[i]; !ok {
			return fmt.Errorf("input indices must be contiguous from 0; index %d is missing", i)
		}
	}
	seenOut := make(map[int]string, len(c.Outputs))
	for name, idx := range c.Outputs {
		if other, dup := seenOut[idx]; dup {
			return fmt.Errorf("outputs %q and %q share index %d", name, other, idx)
		}
		seenOut[idx] = name
	}
	for _, t := range c.ExtraTimers {
		if t.Name == "" {
			return fmt.Errorf("extra timer without a name")
		}
		if t.Duration < 0 {
			return fmt.Errorf("extra timer %q: negative duration", t.Name)
		}
	}
	names := make(map[string]bool, len(c.States))
	for _, s := range c.States {
		if s.Name == "" {
			return fmt.Errorf("state without a name")
		}
		if names[s.Name] {
			return fmt.Errorf("state %q declared twice", s.Name)
		}
		names[s.Name] = true
		if s.Timer != nil && *s.Timer < 0 {
			return fmt.Errorf("state %q: negative timer", s.Name)
		}
	}
	return nil
}

// Build assembles a StateMatrix from the template.
func (c *Config) Build() (*matrix.StateMatrix, error) {
	sm := matrix.New(c.Inputs, c.Outputs)
	for _, t := range c.ExtraTimers {
		if err := sm.AddExtraTimer(t.Name, t.Duration); err != nil {
			return nil, err
		}
	}
	for _, s := range c.States {
		opts := []matrix.StateOption{
			matrix.WithTransitions(s.Transitions),
			matrix.WithOutputsOn(s.OutputsOn...),
			matrix.WithOutputsOff(s.OutputsOff...),
			matrix.WithTrigger(s.Trigger...),
			matrix.WithSerialOut(s.SerialOut),
			matrix.WithIntegerOut(s.IntegerOut),
		}
		if s.Timer != nil {
			opts = append(opts, matrix.WithTimer(*s.Timer))
		}
		if err := sm.AddState(s.Name, opts...); err != nil {
			return nil, err
		}
	}
	return sm, nil
}

// DecodeParams decodes the free-form params block into a typed struct.
func (c *Config) DecodeParams(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "yaml",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(c.Params); err != nil {
		return fmt.Errorf("failed to decode params: %w", err)
	}
	return nil
}
