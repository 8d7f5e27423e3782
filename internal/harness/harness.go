package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/ranked/internal/compiler"
	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/rank"
	"github.com/roach88/ranked/internal/store"
)

// Error codes reported for store errors that carry no rank code.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeListMismatch  = "LIST_MISMATCH"
	CodeUnknown       = "ERROR"
)

// Harness is the test execution engine.
// It replays one scenario against one list.
type Harness struct {
	store  *store.Store
	list   *store.List
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Generated record ids are deterministic (rec-1, rec-2, ...).
//
// Execution flow:
// 1. Compile and validate the list definitions in scenario.Specs
// 2. Create a fresh in-memory database and register the scenario's list
// 3. Execute flow steps, checking each step's expect clause
// 4. Snapshot every scope and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	specs, err := compiler.LoadFiles(scenario.Specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load specs: %w", err)
	}
	if errs := compiler.Validate(specs); len(errs) > 0 {
		return nil, fmt.Errorf("invalid specs: %w", errs[0])
	}

	spec, ok := findList(specs, scenario.List)
	if !ok {
		return nil, fmt.Errorf("list %q not defined in specs", scenario.List)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	st, err := store.Open(":memory:",
		store.WithDriver(scenario.Driver),
		store.WithLogger(logger),
		store.WithIDGenerator(store.NewSequenceGenerator("rec")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	list, err := st.List(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to register list: %w", err)
	}

	h := &Harness{store: st, list: list, logger: logger}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.snapshot(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}

	actx := &AssertionContext{List: list, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func findList(specs []ir.ListSpec, name string) (ir.ListSpec, bool) {
	for _, spec := range specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return ir.ListSpec{}, false
}

// executeFlow runs all flow steps and validates expect clauses.
//
// A step that fails is recorded in the trace with its error code and the
// flow continues, so later steps observe the rolled-back state.
// Only malformed steps (bad scope values) abort the run.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		ev, err := h.apply(ctx, step)
		var stepErr *stepError
		if errors.As(err, &stepErr) {
			return fmt.Errorf("flow step %d: %w", i, stepErr.err)
		}

		if err != nil {
			ev.Error = ErrorCode(err)
		}
		result.AddTrace(ev)

		for _, msg := range checkExpect(i, step, ev, err) {
			result.AddError(msg)
		}

		h.logger.Info("flow step completed",
			"step", i,
			"op", step.Op,
			"id", ev.ID,
			"error", ev.Error,
		)
	}
	return nil
}

// stepError marks a step that could not be attempted at all.
type stepError struct{ err error }

func (e *stepError) Error() string { return e.err.Error() }

// apply performs one step against the list.
func (h *Harness) apply(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Op: step.Op, ID: step.ID}

	pos, err := rank.ParsePosition(step.Position)
	if err != nil {
		return ev, &stepError{err}
	}

	var scope ir.ScopeKey
	if step.Scope != nil || step.Op == OpInsert || step.Op == OpRebalance {
		scope, err = scopeFromMap(h.list.Spec(), step.Scope)
		if err != nil {
			return ev, &stepError{err}
		}
	}

	switch step.Op {
	case OpInsert:
		payload := ""
		if step.Payload != nil {
			payload = *step.Payload
		}
		rec, err := h.list.Insert(ctx, store.InsertRequest{
			ID:       step.ID,
			Scope:    scope,
			Payload:  payload,
			Position: pos,
		})
		if err != nil {
			return ev, err
		}
		ev.ID, ev.Rank = rec.ID, &rec.Rank

	case OpMove:
		rec, err := h.list.Move(ctx, step.ID, pos)
		if err != nil {
			return ev, err
		}
		ev.Rank = &rec.Rank

	case OpUpdate:
		rec, err := h.list.Update(ctx, step.ID, store.UpdateRequest{
			Scope:    scope,
			Payload:  step.Payload,
			Position: pos,
		})
		if err != nil {
			return ev, err
		}
		ev.Rank = &rec.Rank

	case OpDelete:
		if err := h.list.Delete(ctx, step.ID); err != nil {
			return ev, err
		}

	case OpRebalance:
		n, err := h.list.Rebalance(ctx, scope)
		if err != nil {
			return ev, err
		}
		ev.Rows = &n

	default:
		return ev, &stepError{fmt.Errorf("unknown op %q", step.Op)}
	}

	return ev, nil
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(i int, step Step, ev TraceEvent, err error) []string {
	label := fmt.Sprintf("flow[%d] %s %s", i, step.Op, ev.ID)
	exp := step.Expect

	if exp != nil && exp.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("%s: expected error %s, got success", label, exp.Error)}
		}
		if ev.Error != exp.Error {
			return []string{fmt.Sprintf("%s: expected error %s, got %s (%v)", label, exp.Error, ev.Error, err)}
		}
		return nil
	}

	if err != nil {
		return []string{fmt.Sprintf("%s: unexpected error: %v", label, err)}
	}
	if exp == nil {
		return nil
	}

	var errs []string
	if exp.Rank != nil && (ev.Rank == nil || *ev.Rank != *exp.Rank) {
		errs = append(errs, fmt.Sprintf("%s: expected rank %d, got %s", label, *exp.Rank, formatRank(ev.Rank)))
	}
	if exp.Rows != nil && (ev.Rows == nil || *ev.Rows != *exp.Rows) {
		got := "none"
		if ev.Rows != nil {
			got = fmt.Sprintf("%d", *ev.Rows)
		}
		errs = append(errs, fmt.Sprintf("%s: expected %d rows rewritten, got %s", label, *exp.Rows, got))
	}
	return errs
}

func formatRank(r *int64) string {
	if r == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *r)
}

// snapshot records every non-empty scope in canonical key order.
func (h *Harness) snapshot(ctx context.Context, result *Result) error {
	scopes, err := h.list.Scopes(ctx)
	if err != nil {
		return err
	}
	sort.Slice(scopes, func(i, j int) bool {
		return scopes[i].Compare(scopes[j]) < 0
	})

	for _, scope := range scopes {
		recs, err := h.list.Records(ctx, scope)
		if err != nil {
			return err
		}
		state := ScopeState{Scope: scope, Records: make([]RecordState, len(recs))}
		for i, rec := range recs {
			state.Records[i] = RecordState{ID: rec.ID, Rank: rec.Rank}
		}
		result.State = append(result.State, state)
	}
	return nil
}

// ErrorCode returns the stable code scenarios use to name an error.
func ErrorCode(err error) string {
	if code := rank.CodeOf(err); code != "" {
		return string(code)
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, store.ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, store.ErrListMismatch):
		return CodeListMismatch
	default:
		return CodeUnknown
	}
}

// scopeFromMap converts YAML-parsed scope values into a key for spec.
// Missing fields are null.
func scopeFromMap(spec ir.ListSpec, values map[string]interface{}) (ir.ScopeKey, error) {
	converted := make(map[string]ir.IRValue, len(values))
	for name, val := range values {
		irVal, err := ir.FromAny(val)
		if err != nil {
			return nil, fmt.Errorf("scope field %q: %w", name, err)
		}
		converted[name] = irVal
	}
	return spec.ScopeKeyFromMap(converted)
}
