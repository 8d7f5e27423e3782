// Package harness provides conformance testing for ranked lists.
//
// The harness compiles list definitions from CUE files, replays a scenario
// of mutations against a fresh in-memory SQLite store, and checks the
// resulting order, ranks and errors.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	specs:
//	  - lists.cue
//	list: todos
//	flow:
//	  - op: insert
//	    id: A
//	    scope: { board: "b1" }
//	    position: append
//	    expect: { rank: 0 }
//	  - op: insert
//	    id: E
//	    scope: { board: "b1" }
//	    expect: { error: SCOPE_CAPACITY_EXHAUSTED }
//	assertions:
//	  - type: order
//	    scope: { board: "b1" }
//	    ids: [A, B]
//	  - type: ranks
//	    scope: { board: "b1" }
//	    ranks: { A: 0, B: 13 }
//
// # Operations
//
//   - insert: id, scope, position, payload
//   - move: id, position
//   - update: id, and any of scope, position, payload
//   - delete: id
//   - rebalance: scope
//
// Positions use the rank.ParsePosition forms: an index, first, append, up
// or down.
//
// # Assertion Types
//
//   - order: record ids of a scope in rank order
//   - ranks: exact rank per id within a scope (subset match)
//   - count: number of records in a scope
//   - scopes: number of non-empty scopes
//   - verify: the list has no ordering violations
//
// # Golden Files
//
// RunWithGolden snapshots the trace and final state as canonical JSON under
// testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
