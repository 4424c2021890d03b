package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/MRJAPPS/CBruteLib/internal/job"
)

// Scenario defines an enumeration scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Space is the candidate space. Relative @file alphabet items resolve
	// against the scenario file.
	Space job.Definition `yaml:"space"`

	// Window bounds the enumeration. A zero end means the last position.
	Window job.Bounds `yaml:"window,omitempty"`

	// Threads is the requested worker count. Zero means one.
	Threads int `yaml:"threads,omitempty"`

	// Separator joins symbols when candidates are rendered.
	Separator string `yaml:"separator,omitempty"`

	// Assertions validate the listing.
	// Supported types: count, first, last, contains, absent_lengths
	Assertions []Assertion `yaml:"assertions"`

	dir string
}

// Assertion validates the listing.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": the listing has exactly Count entries
	// - "first": the first candidate is Candidate
	// - "last": the last candidate is Candidate
	// - "contains": Candidate appears, at Position when it is set
	// - "absent_lengths": no candidate has one of Lengths
	Type string `yaml:"type"`

	Count     int64  `yaml:"count,omitempty"`
	Candidate string `yaml:"candidate,omitempty"`
	Position  int64  `yaml:"position,omitempty"`
	Lengths   []int  `yaml:"lengths,omitempty"`
}

// Assertion type constants.
const (
	AssertCount         = "count"
	AssertFirst         = "first"
	AssertLast          = "last"
	AssertContains      = "contains"
	AssertAbsentLengths = "absent_lengths"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
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
	scenario.dir = filepath.Dir(path)

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

	if s.Space.Alphabet == "" {
		return fmt.Errorf("space.alphabet is required")
	}

	if s.Threads < 0 {
		return fmt.Errorf("threads must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
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
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertFirst, AssertLast, AssertContains:
		if a.Candidate == "" {
			return fmt.Errorf("assertions[%d]: candidate is required for %s", index, a.Type)
		}
	case AssertAbsentLengths:
		if len(a.Lengths) == 0 {
			return fmt.Errorf("assertions[%d]: lengths list is required for absent_lengths", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// withDefaults fills the fields the YAML may omit.
func (s *Scenario) withDefaults() {
	if s.Space.Mode == "" {
		s.Space.Mode = job.ModeSimple
	}
	if s.Space.Min == 0 {
		s.Space.Min = 1
	}
	if s.Window.Start == 0 {
		s.Window.Start = 1
	}
	if s.Threads == 0 {
		s.Threads = 1
	}
}
