package rank_test

import (
	"context"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/rank"
	"github.com/roach88/ranked/internal/testutil"
)

// list drives a Ranker against a MemAdapter the way a host would: ask the
// ranker for a placement, then persist it.
type list struct {
	t      *testing.T
	ctx    context.Context
	ranker *rank.Ranker
	store  *testutil.MemAdapter
	scope  ir.ScopeKey
}

func newList(t *testing.T, cfg rank.Config) *list {
	t.Helper()
	r, err := rank.New(cfg)
	require.NoError(t, err)
	return &list{
		t:      t,
		ctx:    context.Background(),
		ranker: r,
		store:  testutil.NewMemAdapter(),
		scope:  ir.NewScopeKey(ir.IRString("s")),
	}
}

func sparse(min, max int64) rank.Config {
	return rank.Config{Min: min, Max: max, Mode: rank.ModeSparse}
}

func dense(max int64) rank.Config {
	return rank.Config{Min: 0, Max: max, Mode: rank.ModeDense}
}

func (l *list) tryInsertIn(scope ir.ScopeKey, id string, pos rank.Position) (int64, error) {
	p, err := l.ranker.BeforeInsert(l.ctx, l.store, rank.Mutation{ID: id, NewScope: scope, Position: pos})
	if err != nil {
		return 0, err
	}
	l.store.Put(id, scope, p.Rank)
	return p.Rank, nil
}

func (l *list) insert(id string, pos rank.Position) int64 {
	l.t.Helper()
	r, err := l.tryInsertIn(l.scope, id, pos)
	require.NoError(l.t, err)
	return r
}

func (l *list) tryMove(id string, pos rank.Position) (rank.Placement, error) {
	cur, ok := l.store.RankOf(id)
	require.True(l.t, ok, "unknown id %s", id)
	p, err := l.ranker.BeforeUpdate(l.ctx, l.store, rank.Mutation{ID: id, OldScope: l.scope, Rank: cur, Position: pos})
	if err != nil {
		return rank.Placement{}, err
	}
	l.store.Put(id, l.scope, p.Rank)
	return p, nil
}

func (l *list) move(id string, pos rank.Position) rank.Placement {
	l.t.Helper()
	p, err := l.tryMove(id, pos)
	require.NoError(l.t, err)
	return p
}

func (l *list) remove(id string) {
	l.t.Helper()
	cur, ok := l.store.RankOf(id)
	require.True(l.t, ok)
	require.NoError(l.t, l.ranker.BeforeDelete(l.ctx, l.store, rank.Mutation{ID: id, OldScope: l.scope, Rank: cur}))
	l.store.Remove(id)
}

func (l *list) order() []string {
	return l.store.IDs(l.scope)
}

func (l *list) ranks() map[string]int64 {
	return l.store.Ranks(l.scope)
}

// assertWellFormed checks uniqueness and bounds for every rank in the scope.
func (l *list) assertWellFormed(cfg rank.Config) {
	l.t.Helper()
	seen := make(map[int64]string)
	for id, r := range l.ranks() {
		assert.GreaterOrEqual(l.t, r, cfg.Min, "%s below min", id)
		assert.LessOrEqual(l.t, r, cfg.Max, "%s above max", id)
		if other, dup := seen[r]; dup {
			l.t.Fatalf("rank %d held by %s and %s", r, other, id)
		}
		seen[r] = id
	}
}

func counterValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestSparse_WalkThrough(t *testing.T) {
	l := newList(t, sparse(-100, 100))

	assert.Equal(t, int64(0), l.insert("A", rank.Append))
	assert.Equal(t, int64(50), l.insert("B", rank.Append))
	assert.Equal(t, int64(25), l.insert("C", rank.At(1)))
	assert.Equal(t, []string{"A", "C", "B"}, l.order())

	p := l.move("B", rank.MoveUp)
	assert.Equal(t, int64(13), p.Rank)
	assert.True(t, p.Changed)
	assert.Equal(t, []string{"A", "B", "C"}, l.order())

	l.remove("C")
	assert.Equal(t, map[string]int64{"A": 0, "B": 13}, l.ranks())
}

func TestSparse_EmptyScopeTakesMidpointOfBounds(t *testing.T) {
	l := newList(t, rank.DefaultConfig())
	assert.Equal(t, int64(0), l.insert("A", rank.None))
}

func TestSparse_InsertAtFrontAndMiddle(t *testing.T) {
	l := newList(t, sparse(-1000, 1000))

	l.insert("B", rank.Append)
	l.insert("A", rank.At(0))
	l.insert("D", rank.Append)
	l.insert("C", rank.At(2))

	assert.Equal(t, []string{"A", "B", "C", "D"}, l.order())
	l.assertWellFormed(sparse(-1000, 1000))
}

func TestSparse_IndexClampsToEnds(t *testing.T) {
	l := newList(t, sparse(-1000, 1000))

	l.insert("B", rank.Append)
	l.insert("C", rank.At(99))
	l.insert("A", rank.At(-4))

	assert.Equal(t, []string{"A", "B", "C"}, l.order())
}

func TestSparse_CapacityExhausted(t *testing.T) {
	cfg := sparse(0, 3)
	l := newList(t, cfg)

	for _, id := range []string{"A", "B", "C", "D"} {
		l.insert(id, rank.Append)
	}
	assert.Equal(t, map[string]int64{"A": 0, "B": 1, "C": 2, "D": 3}, l.ranks())

	before := counterValue(t, "ranked_capacity_exhausted_total")
	_, err := l.tryInsertIn(l.scope, "E", rank.Append)
	require.Error(t, err)
	assert.True(t, rank.IsCapacityExhausted(err))
	assert.Equal(t, before+1, counterValue(t, "ranked_capacity_exhausted_total"))

	// Nothing was written before the error.
	assert.Equal(t, map[string]int64{"A": 0, "B": 1, "C": 2, "D": 3}, l.ranks())
}

func TestSparse_ShiftDownAtMax(t *testing.T) {
	cfg := sparse(0, 10)
	l := newList(t, cfg)

	for _, id := range []string{"X1", "X2", "X3", "X4"} {
		l.insert(id, rank.Append)
	}
	assert.Equal(t, map[string]int64{"X1": 5, "X2": 8, "X3": 9, "X4": 10}, l.ranks())

	shifts := counterValue(t, "ranked_shifts_total")
	assert.Equal(t, int64(10), l.insert("X5", rank.Append))
	assert.Equal(t, shifts+1, counterValue(t, "ranked_shifts_total"))

	assert.Equal(t, map[string]int64{"X1": 4, "X2": 7, "X3": 8, "X4": 9, "X5": 10}, l.ranks())
	assert.Equal(t, []string{"X1", "X2", "X3", "X4", "X5"}, l.order())
}

func TestSparse_ShiftUpThenRebalance(t *testing.T) {
	cfg := sparse(0, 10)
	l := newList(t, cfg)

	ids := []string{"X1", "X2", "X3", "X4", "X5", "X6", "X7", "X8"}
	for _, id := range ids {
		l.insert(id, rank.At(0))
		l.assertWellFormed(cfg)
	}
	assert.Equal(t, map[string]int64{
		"X8": 1, "X7": 2, "X6": 3, "X5": 4, "X4": 5, "X3": 6, "X2": 7, "X1": 9,
	}, l.ranks())

	rebalances := counterValue(t, "ranked_rebalances_total")
	assert.Equal(t, int64(1), l.insert("X9", rank.At(0)))
	assert.Equal(t, rebalances+1, counterValue(t, "ranked_rebalances_total"))
	assert.Equal(t, map[string]int64{
		"X9": 1, "X8": 2, "X7": 3, "X6": 4, "X5": 5, "X4": 6, "X3": 7, "X2": 8, "X1": 9,
	}, l.ranks())

	assert.Equal(t, int64(1), l.insert("X10", rank.At(0)))
	assert.Equal(t, []string{"X10", "X9", "X8", "X7", "X6", "X5", "X4", "X3", "X2", "X1"}, l.order())
	assert.Equal(t, int64(10), l.ranks()["X1"])

	// Eleven records still fit [0, 10] once packed one apart from Min.
	assert.Equal(t, int64(0), l.insert("X11", rank.At(0)))
	l.assertWellFormed(cfg)
	for i, id := range l.order() {
		assert.Equal(t, int64(i), l.ranks()[id], id)
	}

	_, err := l.tryInsertIn(l.scope, "X12", rank.At(0))
	assert.True(t, rank.IsCapacityExhausted(err))
	assert.Len(t, l.order(), 11)
}

func TestSparse_RebalancePacksFromMin(t *testing.T) {
	cfg := sparse(0, 3)
	l := newList(t, cfg)

	for _, id := range []string{"A", "B", "C"} {
		l.insert(id, rank.Append)
	}
	assert.Equal(t, map[string]int64{"A": 1, "B": 2, "C": 3}, l.ranks())

	// Rank 0 is still free, so a front insert fills the scope.
	assert.Equal(t, int64(0), l.insert("D", rank.At(0)))
	assert.Equal(t, map[string]int64{"D": 0, "A": 1, "B": 2, "C": 3}, l.ranks())
	assert.Equal(t, []string{"D", "A", "B", "C"}, l.order())
	l.assertWellFormed(cfg)

	_, err := l.tryInsertIn(l.scope, "E", rank.At(2))
	require.Error(t, err)
	assert.True(t, rank.IsCapacityExhausted(err))
	assert.Equal(t, []string{"D", "A", "B", "C"}, l.order())
}

func TestSparse_RebalanceFillsLastFreeRank(t *testing.T) {
	cfg := sparse(0, 5)
	l := newList(t, cfg)

	for id, r := range map[string]int64{"A": 0, "B": 1, "C": 3, "D": 4, "E": 5} {
		l.store.Put(id, l.scope, r)
	}

	assert.Equal(t, int64(1), l.insert("F", rank.At(1)))
	assert.Equal(t, []string{"A", "F", "B", "C", "D", "E"}, l.order())
	l.assertWellFormed(cfg)
}

func TestSparse_MoveAtEndsIsNoOp(t *testing.T) {
	l := newList(t, sparse(-100, 100))
	l.insert("A", rank.Append)
	l.insert("B", rank.Append)

	up := l.move("A", rank.MoveUp)
	assert.False(t, up.Changed)
	assert.Equal(t, int64(0), up.Rank)

	down := l.move("B", rank.MoveDown)
	assert.False(t, down.Changed)
	assert.Equal(t, int64(50), down.Rank)
}

func TestSparse_MoveDown(t *testing.T) {
	l := newList(t, sparse(-100, 100))
	for _, id := range []string{"A", "B", "C"} {
		l.insert(id, rank.Append)
	}

	p := l.move("A", rank.MoveDown)

	assert.True(t, p.Changed)
	assert.Equal(t, []string{"B", "A", "C"}, l.order())
}

func TestSparse_UpdateWithoutPositionKeepsRank(t *testing.T) {
	l := newList(t, sparse(-100, 100))
	l.insert("A", rank.Append)
	l.insert("B", rank.Append)
	l.store.ResetLocks()

	p := l.move("B", rank.None)

	assert.Equal(t, rank.Placement{Rank: 50}, p)
	assert.Empty(t, l.store.Locks(), "no lock for a rank-neutral update")
}

func TestSparse_IndexMoveKeepsRankWhenAlreadyInPlace(t *testing.T) {
	l := newList(t, sparse(-100, 100))
	for _, id := range []string{"A", "B", "C"} {
		l.insert(id, rank.Append)
	}
	before := l.ranks()["B"]

	p := l.move("B", rank.At(1))

	assert.False(t, p.Changed)
	assert.Equal(t, before, p.Rank)
}

func TestSparse_IndexMove(t *testing.T) {
	l := newList(t, sparse(-100, 100))
	for _, id := range []string{"A", "B", "C", "D"} {
		l.insert(id, rank.Append)
	}

	l.move("D", rank.At(0))
	assert.Equal(t, []string{"D", "A", "B", "C"}, l.order())

	l.move("D", rank.Append)
	assert.Equal(t, []string{"A", "B", "C", "D"}, l.order())

	l.move("A", rank.At(2))
	assert.Equal(t, []string{"B", "C", "A", "D"}, l.order())
}

func TestSparse_ScopesAreIndependent(t *testing.T) {
	l := newList(t, sparse(-100, 100))
	other := ir.NewScopeKey(ir.IRString("t"))
	null := ir.NewScopeKey(nil)

	_, err := l.tryInsertIn(l.scope, "A", rank.Append)
	require.NoError(t, err)
	r, err := l.tryInsertIn(other, "B", rank.Append)
	require.NoError(t, err)
	assert.Equal(t, int64(0), r, "first record of a fresh scope")

	r, err = l.tryInsertIn(null, "C", rank.Append)
	require.NoError(t, err)
	assert.Equal(t, int64(0), r)
	r, err = l.tryInsertIn(null, "D", rank.Append)
	require.NoError(t, err)
	assert.Equal(t, int64(50), r, "null scope values match each other")

	assert.Equal(t, []string{"C", "D"}, l.store.IDs(null))
}

func TestSparse_ScopeTransition(t *testing.T) {
	l := newList(t, sparse(-100, 100))
	s1 := ir.NewScopeKey(ir.IRString("s1"))
	s2 := ir.NewScopeKey(ir.IRString("s2"))

	_, err := l.tryInsertIn(s2, "X", rank.Append)
	require.NoError(t, err)
	_, err = l.tryInsertIn(s1, "A", rank.Append)
	require.NoError(t, err)
	_, err = l.tryInsertIn(s1, "B", rank.Append)
	require.NoError(t, err)
	l.store.ResetLocks()

	p, err := l.ranker.BeforeUpdate(l.ctx, l.store, rank.Mutation{
		ID: "A", OldScope: s1, NewScope: s2, Rank: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, rank.Placement{Rank: 50, Changed: true}, p, "no position appends")
	l.store.Put("A", s2, p.Rank)
	assert.Equal(t, []string{`["s1"]`, `["s2"]`}, l.store.Locks())
	assert.Equal(t, []string{"X", "A"}, l.store.IDs(s2))
	assert.Equal(t, []string{"B"}, l.store.IDs(s1))

	// Locks are taken in canonical order regardless of direction.
	l.store.ResetLocks()
	p, err = l.ranker.BeforeUpdate(l.ctx, l.store, rank.Mutation{
		ID: "A", OldScope: s2, NewScope: s1, Rank: 50, Position: rank.At(0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-25), p.Rank)
	l.store.Put("A", s1, p.Rank)
	assert.Equal(t, []string{`["s1"]`, `["s2"]`}, l.store.Locks())
	assert.Equal(t, []string{"A", "B"}, l.store.IDs(s1))
}

func TestSparse_Rebalance(t *testing.T) {
	cfg := sparse(0, 100)
	l := newList(t, cfg)
	for _, id := range []string{"A", "B", "C", "D"} {
		l.insert(id, rank.Append)
	}

	n, err := l.ranker.Rebalance(l.ctx, l.store, l.scope)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, map[string]int64{"A": 20, "B": 40, "C": 60, "D": 80}, l.ranks())

	n, err = l.ranker.Rebalance(l.ctx, l.store, l.scope)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already spread")
}

func TestSparse_RebalancePacksTightScope(t *testing.T) {
	cfg := sparse(0, 3)
	l := newList(t, cfg)
	for _, id := range []string{"A", "B", "C"} {
		l.insert(id, rank.Append)
	}

	_, err := l.ranker.Rebalance(l.ctx, l.store, l.scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, l.order())
	l.assertWellFormed(cfg)
}

// TestSparse_RandomOperations runs a seeded stream of inserts, moves and
// deletes against a tight range and checks the ranks against a plain slice
// after every step.
func TestSparse_RandomOperations(t *testing.T) {
	cfg := sparse(0, 200)
	l := newList(t, cfg)
	rng := rand.New(rand.NewPCG(7, 11))

	var model []string
	next := 0
	for step := 0; step < 600; step++ {
		switch op := rng.IntN(10); {
		case op < 4 && len(model) < 40:
			next++
			id := "r" + strconv.Itoa(next)
			idx := rng.IntN(len(model) + 2)
			if idx > len(model) {
				l.insert(id, rank.Append)
				model = append(model, id)
			} else {
				l.insert(id, rank.At(idx))
				model = slices.Insert(model, idx, id)
			}
		case op < 6 && len(model) > 0:
			i := rng.IntN(len(model))
			id := model[i]
			if rng.IntN(2) == 0 {
				l.move(id, rank.MoveUp)
				if i > 0 {
					model[i-1], model[i] = model[i], model[i-1]
				}
			} else {
				l.move(id, rank.MoveDown)
				if i < len(model)-1 {
					model[i+1], model[i] = model[i], model[i+1]
				}
			}
		case op < 8 && len(model) > 0:
			i := rng.IntN(len(model))
			id := model[i]
			to := rng.IntN(len(model))
			l.move(id, rank.At(to))
			model = slices.Delete(model, i, i+1)
			model = slices.Insert(model, to, id)
		case len(model) > 0:
			i := rng.IntN(len(model))
			l.remove(model[i])
			model = slices.Delete(model, i, i+1)
		}

		l.assertWellFormed(cfg)
		require.Equal(t, model, l.order(), "step %d", step)
	}
}

func TestDense_InsertMoveDelete(t *testing.T) {
	cfg := dense(100)
	l := newList(t, cfg)

	assert.Equal(t, int64(0), l.insert("A", rank.Append))
	assert.Equal(t, int64(1), l.insert("B", rank.None))
	assert.Equal(t, int64(2), l.insert("C", rank.Append))
	assert.Equal(t, int64(1), l.insert("D", rank.At(1)))
	assert.Equal(t, map[string]int64{"A": 0, "D": 1, "B": 2, "C": 3}, l.ranks())

	p := l.move("C", rank.At(0))
	assert.Equal(t, rank.Placement{Rank: 0, Changed: true}, p)
	assert.Equal(t, map[string]int64{"C": 0, "A": 1, "D": 2, "B": 3}, l.ranks())

	l.move("A", rank.MoveUp)
	assert.Equal(t, []string{"A", "C", "D", "B"}, l.order())

	l.move("A", rank.Append)
	assert.Equal(t, map[string]int64{"C": 0, "D": 1, "B": 2, "A": 3}, l.ranks())

	l.remove("D")
	assert.Equal(t, map[string]int64{"C": 0, "B": 1, "A": 2}, l.ranks())
}

func TestDense_MoveAtEndsIsNoOp(t *testing.T) {
	l := newList(t, dense(100))
	l.insert("A", rank.Append)
	l.insert("B", rank.Append)

	assert.False(t, l.move("A", rank.MoveUp).Changed)
	assert.False(t, l.move("B", rank.MoveDown).Changed)
	assert.False(t, l.move("B", rank.At(1)).Changed)
}

func TestDense_PositionOutOfRange(t *testing.T) {
	l := newList(t, dense(100))
	l.insert("A", rank.Append)
	l.insert("B", rank.Append)
	l.insert("C", rank.Append)

	_, err := l.tryInsertIn(l.scope, "D", rank.At(5))
	require.Error(t, err)
	assert.True(t, rank.IsPositionOutOfRange(err))

	_, err = l.tryInsertIn(l.scope, "D", rank.At(-1))
	assert.True(t, rank.IsPositionOutOfRange(err))

	_, err = l.tryMove("A", rank.At(3))
	assert.True(t, rank.IsPositionOutOfRange(err), "two other records allow indices 0..2")

	assert.Equal(t, map[string]int64{"A": 0, "B": 1, "C": 2}, l.ranks())
}

func TestDense_CapacityExhausted(t *testing.T) {
	l := newList(t, dense(2))
	l.insert("A", rank.Append)
	l.insert("B", rank.Append)
	l.insert("C", rank.Append)

	_, err := l.tryInsertIn(l.scope, "D", rank.Append)
	assert.True(t, rank.IsCapacityExhausted(err))
}

func TestDense_ScopeTransitionClosesGap(t *testing.T) {
	l := newList(t, dense(100))
	other := ir.NewScopeKey(ir.IRString("t"))
	for _, id := range []string{"A", "B", "C"} {
		l.insert(id, rank.Append)
	}
	_, err := l.tryInsertIn(other, "X", rank.Append)
	require.NoError(t, err)

	p, err := l.ranker.BeforeUpdate(l.ctx, l.store, rank.Mutation{
		ID: "A", OldScope: l.scope, NewScope: other, Rank: 0, Position: rank.At(0),
	})
	require.NoError(t, err)
	l.store.Put("A", other, p.Rank)

	assert.Equal(t, map[string]int64{"B": 0, "C": 1}, l.ranks())
	assert.Equal(t, map[string]int64{"A": 0, "X": 1}, l.store.Ranks(other))
}

func TestDense_RebalanceCompacts(t *testing.T) {
	l := newList(t, dense(100))
	l.store.Put("A", l.scope, 3)
	l.store.Put("B", l.scope, 7)
	l.store.Put("C", l.scope, 8)

	n, err := l.ranker.Rebalance(l.ctx, l.store, l.scope)
	require.NoError(t, err)

	assert.Equal(t, 3, n)
	assert.Equal(t, map[string]int64{"A": 0, "B": 1, "C": 2}, l.ranks())
}

func TestDense_RandomOperations(t *testing.T) {
	l := newList(t, dense(1000))
	rng := rand.New(rand.NewPCG(3, 5))

	var model []string
	next := 0
	for step := 0; step < 300; step++ {
		switch op := rng.IntN(3); {
		case op == 0 || len(model) == 0:
			next++
			id := "d" + strconv.Itoa(next)
			idx := rng.IntN(len(model) + 1)
			l.insert(id, rank.At(idx))
			model = slices.Insert(model, idx, id)
		case op == 1:
			i := rng.IntN(len(model))
			id := model[i]
			to := rng.IntN(len(model))
			l.move(id, rank.At(to))
			model = slices.Delete(model, i, i+1)
			model = slices.Insert(model, to, id)
		default:
			i := rng.IntN(len(model))
			l.remove(model[i])
			model = slices.Delete(model, i, i+1)
		}

		want := make(map[string]int64, len(model))
		for i, id := range model {
			want[id] = int64(i)
		}
		require.Equal(t, want, l.ranks(), "step %d", step)
	}
}
