package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	State    []ScopeState // Final state for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal state:\n")
	for _, s := range e.State {
		fmt.Fprintf(&buf, "  %s:", s.Scope)
		for _, rec := range s.Records {
			fmt.Fprintf(&buf, " %s=%d", rec.ID, rec.Rank)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// AssertionContext carries what state assertions need beyond the result.
type AssertionContext struct {
	List *store.List
	Ctx  context.Context
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertOrder:
			err = assertOrder(result, assertion, actx)
		case AssertRanks:
			err = assertRanks(result, assertion, actx)
		case AssertCount:
			err = assertCount(result, assertion, actx)
		case AssertScopes:
			err = assertScopes(result, assertion)
		case AssertVerify:
			if actx == nil || actx.List == nil {
				err = fmt.Errorf("verify requires a list")
			} else {
				err = assertVerify(actx, result)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

// assertionScope resolves the assertion's scope against the list spec.
func assertionScope(a Assertion, actx *AssertionContext) (ir.ScopeKey, error) {
	if actx == nil || actx.List == nil {
		return nil, fmt.Errorf("%s requires a list", a.Type)
	}
	return scopeFromMap(actx.List.Spec(), a.Scope)
}

// recordsOf returns the snapshot records of scope (empty if none).
func recordsOf(result *Result, scope ir.ScopeKey) []RecordState {
	if s := result.scope(scope); s != nil {
		return s.Records
	}
	return nil
}

// assertOrder checks the ids of a scope appear exactly in the given order.
func assertOrder(result *Result, a Assertion, actx *AssertionContext) error {
	scope, err := assertionScope(a, actx)
	if err != nil {
		return err
	}

	recs := recordsOf(result, scope)
	actual := make([]string, len(recs))
	for i, rec := range recs {
		actual[i] = rec.ID
	}

	if !equalStrings(actual, a.IDs) {
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("%s in scope %s", a.IDs, scope),
			Actual:   fmt.Sprintf("%s", actual),
			State:    result.State,
		}
	}
	return nil
}

// assertRanks checks the listed ids hold the given ranks (subset match).
func assertRanks(result *Result, a Assertion, actx *AssertionContext) error {
	scope, err := assertionScope(a, actx)
	if err != nil {
		return err
	}

	actual := make(map[string]int64)
	for _, rec := range recordsOf(result, scope) {
		actual[rec.ID] = rec.Rank
	}

	ids := make([]string, 0, len(a.Ranks))
	for id := range a.Ranks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var mismatches []string
	for _, id := range ids {
		got, ok := actual[id]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("%s missing", id))
		case got != a.Ranks[id]:
			mismatches = append(mismatches, fmt.Sprintf("%s=%d want %d", id, got, a.Ranks[id]))
		}
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertRanks,
			Expected: fmt.Sprintf("ranks %v in scope %s", a.Ranks, scope),
			Actual:   strings.Join(mismatches, ", "),
			State:    result.State,
		}
	}
	return nil
}

// assertCount checks the number of records in a scope.
func assertCount(result *Result, a Assertion, actx *AssertionContext) error {
	scope, err := assertionScope(a, actx)
	if err != nil {
		return err
	}

	if n := len(recordsOf(result, scope)); n != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d records in scope %s", a.Count, scope),
			Actual:   fmt.Sprintf("%d records", n),
			State:    result.State,
		}
	}
	return nil
}

// assertScopes checks the number of non-empty scopes.
func assertScopes(result *Result, a Assertion) error {
	if n := len(result.State); n != a.Count {
		return &AssertionError{
			Type:     AssertScopes,
			Expected: fmt.Sprintf("%d scopes", a.Count),
			Actual:   fmt.Sprintf("%d scopes", n),
			State:    result.State,
		}
	}
	return nil
}

// assertVerify checks the list reports no ordering violations.
func assertVerify(actx *AssertionContext, result *Result) error {
	violations, err := actx.List.Verify(actx.Ctx)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		return nil
	}

	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return &AssertionError{
		Type:     AssertVerify,
		Expected: "no violations",
		Actual:   strings.Join(msgs, "; "),
		State:    result.State,
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
