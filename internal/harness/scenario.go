package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test for one blueprint.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Blueprint is the path of the blueprint file (.yaml or .cue).
	// Relative paths are resolved against the scenario file location.
	Blueprint string `yaml:"blueprint"`

	// Seed overrides the blueprint's seed. Without either, 0 is used.
	Seed *uint64 `yaml:"seed,omitempty"`

	// Num overrides the blueprint's num. Without either, 10 items are made.
	Num int `yaml:"num,omitempty"`

	// RunID is the fixed ledger ID of the scenario's run.
	RunID string `yaml:"run_id,omitempty"`

	// Expect holds whole-batch expectations.
	Expect Expect `yaml:"expect,omitempty"`

	// Assertions validate individual fields of every item.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect lists whole-batch expectations.
type Expect struct {
	// Count is the expected number of items.
	Count *int `yaml:"count,omitempty"`

	// Deterministic requires a ledger replay to reproduce the batch.
	Deterministic bool `yaml:"deterministic,omitempty"`

	// SpawnEquivalent requires a mid-batch spawn to continue identically.
	SpawnEquivalent bool `yaml:"spawn_equivalent,omitempty"`

	// Fingerprint pins the batch fingerprint.
	Fingerprint string `yaml:"fingerprint,omitempty"`
}

// Assertion validates one field across the batch.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Field is the field name or dotted path. Empty means the item itself.
	Field string `yaml:"field,omitempty"`

	// Min and Max bound numeric values (range).
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Pattern is a regular expression (pattern).
	Pattern string `yaml:"pattern,omitempty"`

	// Values lists the allowed values (one_of).
	Values []any `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertRange    = "range"
	AssertPattern  = "pattern"
	AssertDistinct = "distinct"
	AssertOneOf    = "one_of"
	AssertNotNull  = "not_null"
)

const defaultNum = 10

// LoadScenario reads and parses a scenario YAML file, resolving the
// blueprint path relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the blueprint path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Blueprint != "" && !filepath.IsAbs(scenario.Blueprint) && basePath != "" {
		scenario.Blueprint = filepath.Join(basePath, scenario.Blueprint)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Blueprint == "" {
		return fmt.Errorf("blueprint is required")
	}
	if _, err := os.Stat(s.Blueprint); os.IsNotExist(err) {
		return fmt.Errorf("blueprint file not found: %s", s.Blueprint)
	}

	if s.Num < 0 {
		return fmt.Errorf("num must be non-negative")
	}
	if s.Expect.Count != nil && *s.Expect.Count < 0 {
		return fmt.Errorf("expect.count must be non-negative")
	}

	if s.Expect.Count == nil && !s.Expect.Deterministic && !s.Expect.SpawnEquivalent &&
		s.Expect.Fingerprint == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("scenario checks nothing: add expect entries or assertions")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRange:
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: min or max is required for range", index)
		}
		if a.Min != nil && a.Max != nil && *a.Min > *a.Max {
			return fmt.Errorf("assertions[%d]: min %v is greater than max %v", index, *a.Min, *a.Max)
		}
	case AssertPattern:
		if a.Pattern == "" {
			return fmt.Errorf("assertions[%d]: pattern is required for pattern", index)
		}
		if _, err := regexp.Compile(a.Pattern); err != nil {
			return fmt.Errorf("assertions[%d]: invalid pattern: %w", index, err)
		}
	case AssertOneOf:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for one_of", index)
		}
	case AssertDistinct, AssertNotNull:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
