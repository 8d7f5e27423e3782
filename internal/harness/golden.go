package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ranked/internal/ir"
)

// Snapshot captures the trace and final state of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string       `json:"scenario"`
	Trace        []TraceEvent `json:"trace"`
	State        []ScopeState `json:"state"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq": event.Seq,
			"op":  event.Op,
		}
		if event.ID != "" {
			eventMap["id"] = event.ID
		}
		if event.Rank != nil {
			eventMap["rank"] = *event.Rank
		}
		if event.Rows != nil {
			eventMap["rows"] = *event.Rows
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	stateList := make([]any, len(s.State))
	for i, scope := range s.State {
		records := make([]any, len(scope.Records))
		for j, rec := range scope.Records {
			records[j] = map[string]any{"id": rec.ID, "rank": rec.Rank}
		}
		stateList[i] = map[string]any{
			"scope":   ir.IRArray(scope.Scope),
			"records": records,
		}
	}

	return map[string]any{
		"scenario": s.ScenarioName,
		"trace":    traceList,
		"state":    stateList,
	}
}

// MarshalSnapshot returns the canonical JSON snapshot of a result. It is
// the content of the scenario's golden file.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
