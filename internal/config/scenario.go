package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs loaded from a YAML file. Each
// step names its overrides with the same dotted keys presets use, e.g.
//
//	name: relaxation survey
//	steps:
//	  - name: cold
//	    preset: plummer-small
//	    values:
//	      cluster.virial_radius: "1 pc"
//	  - name: warm
//	    values:
//	      cluster.n: 4096
//	      run.t_end: "50 Myr"
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep configures one run of the sequence.
type ScenarioStep struct {
	Name   string                 `yaml:"name,omitempty"`
	Preset string                 `yaml:"preset,omitempty"`
	Values map[string]interface{} `yaml:"values,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.Name == "" {
			st.Name = fmt.Sprintf("step-%d", i+1)
		}
		if st.Preset != "" {
			if _, ok := Presets[st.Preset]; !ok {
				return nil, fmt.Errorf("step %s: unknown preset %q (known: %s)",
					st.Name, st.Preset, strings.Join(PresetNames(), ", "))
			}
		}
	}
	return &s, nil
}

// StepConfig resolves the effective configuration for one step. The
// step's values override file and environment; flags set on the
// command line still win.
func (s *Scenario) StepConfig(i int, cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if i < 0 || i >= len(s.Steps) {
		return nil, fmt.Errorf("scenario has no step %d", i)
	}
	st := s.Steps[i]
	cfg, err := load(cfgFile, st.Preset, flags, st.Values)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", st.Name, err)
	}
	return cfg, nil
}
