package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/modlayers/internal/keys"
)

// Scenario defines a keyboard test scenario: a config, a sequence of scan
// cycles, and assertions on what the pipeline produced.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the CUE config directory. Relative paths are resolved
	// against the scenario file's directory. Optional when the caller
	// supplies the config, as the test command does.
	Config string `yaml:"config"`

	// Cycles are the scan cycles, run in order.
	Cycles []CycleStep `yaml:"cycles"`

	// Assertions validate the run as a whole.
	// Supported types: masked_count, layer_active, layer_inactive,
	// never_locked_both, no_release
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// CycleStep is one scan, optionally repeated.
type CycleStep struct {
	// Down lists the held matrix addresses as "row,col".
	Down []string `yaml:"down"`

	// Inject lists key names processed after the matrix scan.
	Inject []string `yaml:"inject,omitempty"`

	// Repeat runs the same scan this many times. Zero means once.
	// Expect applies to the last repetition.
	Repeat int `yaml:"repeat,omitempty"`

	// Expect is checked against the cycle record. Nil skips the check.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected cycle output. A nil field is not
// checked; an empty list must match an empty result.
type ExpectClause struct {
	// Masked is the list of addresses whose events were consumed, in scan order.
	Masked []string `yaml:"masked,omitempty"`

	// ReportModifiers is the modifier byte of the report, by name.
	ReportModifiers []string `yaml:"report_modifiers,omitempty"`

	// ReportKeys is the set of key names in the report's key slots.
	ReportKeys []string `yaml:"report_keys,omitempty"`

	// ActiveLayers is the set of visible layers, by name.
	ActiveLayers []string `yaml:"active_layers,omitempty"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "masked_count": total consumed events equals Count
	// - "layer_active": Layer is visible after Cycle
	// - "layer_inactive": Layer is hidden after Cycle
	// - "never_locked_both": no cycle locks a modifier both held and unheld
	// - "no_release": the finalizer released nothing (at Cycle, or anywhere)
	Type string `yaml:"type"`

	// Count is the expected number of masked events (used by masked_count).
	Count *int `yaml:"count,omitempty"`

	// Layer is the layer name (used by layer_active, layer_inactive).
	Layer string `yaml:"layer,omitempty"`

	// Cycle selects a cycle by number. Nil means the last cycle for layer
	// assertions and every cycle for no_release.
	Cycle *int64 `yaml:"cycle,omitempty"`
}

// Assertion type constants.
const (
	AssertMaskedCount     = "masked_count"
	AssertLayerActive     = "layer_active"
	AssertLayerInactive   = "layer_inactive"
	AssertNeverLockedBoth = "never_locked_both"
	AssertNoRelease       = "no_release"
)

// LoadScenario reads and parses a scenario YAML file.
// The config path is resolved relative to the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the config path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) && basePath != "" {
		scenario.Config = filepath.Join(basePath, scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks required fields and that every address, key and
// modifier name parses. Layer names are checked at run time against the
// compiled config.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Cycles) == 0 {
		return fmt.Errorf("at least one cycle is required")
	}

	for i, step := range s.Cycles {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step CycleStep) error {
	if step.Repeat < 0 {
		return fmt.Errorf("cycles[%d]: repeat must be non-negative", index)
	}
	if _, _, err := step.inputs(); err != nil {
		return fmt.Errorf("cycles[%d]: %w", index, err)
	}
	if step.Expect == nil {
		return nil
	}
	for _, s := range step.Expect.Masked {
		if _, err := keys.ParseAddr(s); err != nil {
			return fmt.Errorf("cycles[%d].expect.masked: %w", index, err)
		}
	}
	if _, err := keys.ParseModSet(step.Expect.ReportModifiers); err != nil {
		return fmt.Errorf("cycles[%d].expect.report_modifiers: %w", index, err)
	}
	for _, name := range step.Expect.ReportKeys {
		if _, err := keys.ParseKey(name); err != nil {
			return fmt.Errorf("cycles[%d].expect.report_keys: %w", index, err)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertMaskedCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for masked_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for masked_count", index)
		}
	case AssertLayerActive, AssertLayerInactive:
		if a.Layer == "" {
			return fmt.Errorf("assertions[%d]: layer is required for %s", index, a.Type)
		}
	case AssertNeverLockedBoth, AssertNoRelease:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// inputs parses the step's held addresses and injected keys.
func (c CycleStep) inputs() ([]keys.KeyAddr, []keys.Key, error) {
	var down []keys.KeyAddr
	for _, s := range c.Down {
		a, err := keys.ParseAddr(s)
		if err != nil {
			return nil, nil, fmt.Errorf("down: %w", err)
		}
		down = append(down, a)
	}
	var injected []keys.Key
	for _, name := range c.Inject {
		k, err := keys.ParseKey(name)
		if err != nil {
			return nil, nil, fmt.Errorf("inject: %w", err)
		}
		injected = append(injected, k)
	}
	return down, injected, nil
}

// repeats returns how many times the step runs.
func (c CycleStep) repeats() int {
	return max(c.Repeat, 1)
}
