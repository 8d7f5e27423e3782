package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ranked/internal/rank"
)

// Scenario defines a conformance test scenario.
// Scenarios replay a sequence of list mutations and assert on the
// resulting order and on the errors each step produces.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists paths to CUE files holding list definitions.
	// Paths are relative to the scenario file location.
	Specs []string `yaml:"specs"`

	// List names the list definition the flow operates on.
	List string `yaml:"list"`

	// Driver selects the SQLite driver ("sqlite3" or "sqlite").
	// Empty uses the store default.
	Driver string `yaml:"driver,omitempty"`

	// Flow contains the mutations to replay, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final state of the list.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one mutation in the flow.
type Step struct {
	// Op is insert, move, update, delete or rebalance.
	Op string `yaml:"op"`

	// ID is the record id. Required for every op except rebalance.
	ID string `yaml:"id,omitempty"`

	// Scope names scope field values. Missing fields are null.
	// On update, a nil scope keeps the current one.
	Scope map[string]interface{} `yaml:"scope,omitempty"`

	// Position is the requested placement (see rank.ParsePosition).
	Position string `yaml:"position,omitempty"`

	// Payload replaces the record payload when set.
	Payload *string `yaml:"payload,omitempty"`

	// Expect checks the step outcome. If nil the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Rank is the rank the record must end up with.
	Rank *int64 `yaml:"rank,omitempty"`

	// Rows is the number of rows a rebalance must rewrite.
	Rows *int `yaml:"rows,omitempty"`

	// Error is the expected error code, e.g. SCOPE_CAPACITY_EXHAUSTED or
	// NOT_FOUND. A step with an expected error must fail with that code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final state of the list.
type Assertion struct {
	// Type specifies the assertion type:
	// - "order": record ids of Scope in rank order
	// - "ranks": rank per id within Scope (subset match)
	// - "count": number of records in Scope
	// - "scopes": number of non-empty scopes
	// - "verify": no ordering violations anywhere in the list
	Type string `yaml:"type"`

	// Scope is the scope to inspect (order, ranks, count).
	Scope map[string]interface{} `yaml:"scope,omitempty"`

	// IDs is the expected id order (order).
	IDs []string `yaml:"ids,omitempty"`

	// Ranks maps id to expected rank (ranks).
	Ranks map[string]int64 `yaml:"ranks,omitempty"`

	// Count is the expected number (count, scopes).
	Count int `yaml:"count,omitempty"`
}

// Step operation constants.
const (
	OpInsert    = "insert"
	OpMove      = "move"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpRebalance = "rebalance"
)

// Assertion type constants.
const (
	AssertOrder  = "order"
	AssertRanks  = "ranks"
	AssertCount  = "count"
	AssertScopes = "scopes"
	AssertVerify = "verify"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to the provided base path.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
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

	// Resolve spec paths relative to base path BEFORE validation
	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
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

	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}

	if s.List == "" {
		return fmt.Errorf("list is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single flow step based on its op.
func validateStep(index int, s *Step) error {
	switch s.Op {
	case OpInsert, OpMove, OpUpdate, OpDelete:
		if s.ID == "" && s.Op != OpInsert {
			return fmt.Errorf("flow[%d]: id is required for %s", index, s.Op)
		}
	case OpRebalance:
	case "":
		return fmt.Errorf("flow[%d]: op is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown op %q", index, s.Op)
	}

	if _, err := rank.ParsePosition(s.Position); err != nil {
		return fmt.Errorf("flow[%d]: %w", index, err)
	}

	if s.Expect != nil && s.Expect.Error != "" && (s.Expect.Rank != nil || s.Expect.Rows != nil) {
		return fmt.Errorf("flow[%d].expect: error cannot be combined with rank or rows", index)
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOrder:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids list is required for order", index)
		}
	case AssertRanks:
		if len(a.Ranks) == 0 {
			return fmt.Errorf("assertions[%d]: ranks map is required for ranks", index)
		}
	case AssertCount, AssertScopes:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertVerify:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
