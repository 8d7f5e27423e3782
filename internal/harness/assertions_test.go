package harness

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/rank"
	"github.com/roach88/ranked/internal/store"
)

// newAssertionContext opens an in-memory board list holding A=0, B=50 in
// scope "todo" and returns the matching result snapshot.
func newAssertionContext(t *testing.T) (*AssertionContext, *Result, *store.Store) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(":memory:", store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	list, err := st.List(ctx, ir.ListSpec{
		Name:  "board",
		Table: "board_cards",
		Scope: []ir.ScopeField{{Name: "column", Type: ir.FieldString}},
		Mode:  ir.ModeSparse,
		Min:   -100,
		Max:   100,
	})
	require.NoError(t, err)

	scope := ir.NewScopeKey(ir.IRString("todo"))
	for _, id := range []string{"A", "B"} {
		_, err := list.Insert(ctx, store.InsertRequest{ID: id, Scope: scope, Position: rank.Append})
		require.NoError(t, err)
	}

	result := NewResult()
	h := &Harness{store: st, list: list, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, h.snapshot(ctx, result))

	return &AssertionContext{List: list, Ctx: ctx}, result, st
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	actx, result, _ := newAssertionContext(t)

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertOrder, Scope: todo(), IDs: []string{"A", "B"}},
		{Type: AssertRanks, Scope: todo(), Ranks: map[string]int64{"B": 50}},
		{Type: AssertCount, Scope: todo(), Count: 2},
		{Type: AssertCount, Scope: map[string]interface{}{"column": "done"}, Count: 0},
		{Type: AssertScopes, Count: 1},
		{Type: AssertVerify},
	}, actx)

	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Order(t *testing.T) {
	actx, result, _ := newAssertionContext(t)

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertOrder, Scope: todo(), IDs: []string{"B", "A"}},
	}, actx)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "assertion 0")
	assert.Contains(t, errs[0], "Assertion failed: order")
	assert.Contains(t, errs[0], "Actual: [A B]")
	assert.Contains(t, errs[0], `["todo"]: A=0 B=50`)
}

func TestEvaluateAssertions_Ranks(t *testing.T) {
	actx, result, _ := newAssertionContext(t)

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertRanks, Scope: todo(), Ranks: map[string]int64{"A": 1, "Z": 0}},
	}, actx)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Actual: A=0 want 1, Z missing")
}

func TestEvaluateAssertions_Counts(t *testing.T) {
	actx, result, _ := newAssertionContext(t)

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertCount, Scope: todo(), Count: 3},
		{Type: AssertScopes, Count: 2},
	}, actx)

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Actual: 2 records")
	assert.Contains(t, errs[1], "Actual: 1 scopes")
}

func TestEvaluateAssertions_Verify(t *testing.T) {
	actx, result, st := newAssertionContext(t)

	// Put a second record on rank 0 behind the list's back.
	_, err := actx.List.Insert(actx.Ctx, store.InsertRequest{
		ID:       "C",
		Scope:    ir.NewScopeKey(ir.IRString("todo")),
		Position: rank.Append,
	})
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE board_cards SET rank = 0 WHERE id = 'C'`)
	require.NoError(t, err)

	errs := EvaluateAssertions(result, []Assertion{{Type: AssertVerify}}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "duplicate_rank")
}

func TestEvaluateAssertions_BadScope(t *testing.T) {
	actx, result, _ := newAssertionContext(t)

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertCount, Scope: map[string]interface{}{"lane": 1}, Count: 0},
	}, actx)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no scope field(s) lane")
}

func TestEvaluateAssertions_NoList(t *testing.T) {
	result := NewResult()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertOrder, IDs: []string{}},
		{Type: AssertVerify},
		{Type: AssertScopes, Count: 0},
		{Type: "bogus"},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "order requires a list")
	assert.Contains(t, errs[1], "verify requires a list")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}
