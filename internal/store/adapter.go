package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/queryir"
	"github.com/roach88/ranked/internal/rank"
)

// queryer is the subset of *sql.DB and *sql.Tx the adapter needs.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txAdapter implements rank.Adapter for one list inside one transaction.
// Every statement is built as queryir and compiled by querysql.
type txAdapter struct {
	q    queryer
	list *List
}

var _ rank.Adapter = (*txAdapter)(nil)

func (l *List) adapter(q queryer) *txAdapter {
	return &txAdapter{q: q, list: l}
}

// scopeFilter matches every row of scope. NULL components match NULL.
func (l *List) scopeFilter(scope ir.ScopeKey) queryir.Predicate {
	preds := make([]queryir.Predicate, len(l.spec.Scope))
	for i, f := range l.spec.Scope {
		var v ir.IRValue = ir.IRNull{}
		if i < len(scope) {
			v = scope[i]
		}
		preds[i] = queryir.Equals{Field: f.Name, Value: v}
	}
	return queryir.And{Predicates: preds}
}

// scopedFilter narrows scopeFilter by excluding one id and adding extra
// predicates.
func (l *List) scopedFilter(scope ir.ScopeKey, exclude string, extra ...queryir.Predicate) queryir.Predicate {
	preds := []queryir.Predicate{l.scopeFilter(scope)}
	if exclude != "" {
		preds = append(preds, queryir.NotEquals{Field: colID, Value: ir.IRString(exclude)})
	}
	return queryir.All(append(preds, extra...)...)
}

func (a *txAdapter) exec(ctx context.Context, q queryir.Query) (sql.Result, error) {
	text, params, err := a.list.store.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return a.q.ExecContext(ctx, text, params...)
}

func (a *txAdapter) query(ctx context.Context, q queryir.Query) (*sql.Rows, error) {
	text, params, err := a.list.store.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return a.q.QueryContext(ctx, text, params...)
}

// ranks runs a single-column rank select.
func (a *txAdapter) ranks(ctx context.Context, q queryir.Select) ([]int64, error) {
	rows, err := a.query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var r int64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan rank: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranks: %w", err)
	}
	return out, nil
}

func (a *txAdapter) aggregate(ctx context.Context, fn queryir.AggFunc, scope ir.ScopeKey, exclude string) (sql.NullInt64, error) {
	text, params, err := a.list.store.compiler.Compile(queryir.Select{
		From:      a.list.spec.Table,
		Aggregate: &queryir.Aggregate{Func: fn, Column: colRank},
		Filter:    a.list.scopedFilter(scope, exclude),
	})
	if err != nil {
		return sql.NullInt64{}, err
	}
	var v sql.NullInt64
	if err := a.q.QueryRowContext(ctx, text, params...).Scan(&v); err != nil {
		return sql.NullInt64{}, fmt.Errorf("%s(rank): %w", fn, err)
	}
	return v, nil
}

// LockScope rewrites every rank of the scope with itself. Together with the
// immediate transaction this holds the write lock until commit.
func (a *txAdapter) LockScope(ctx context.Context, scope ir.ScopeKey) error {
	_, err := a.exec(ctx, queryir.Update{
		Table:  a.list.spec.Table,
		Set:    []queryir.Assignment{queryir.AddDelta{Column: colRank, Delta: 0}},
		Filter: a.list.scopeFilter(scope),
	})
	return err
}

func (a *txAdapter) OrderedRanks(ctx context.Context, scope ir.ScopeKey, exclude string) ([]rank.Entry, error) {
	rows, err := a.query(ctx, queryir.Select{
		From:    a.list.spec.Table,
		Columns: []string{colID, colRank},
		Filter:  a.list.scopedFilter(scope, exclude),
		OrderBy: []queryir.Order{{Column: colRank}},
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rank.Entry
	for rows.Next() {
		var e rank.Entry
		if err := rows.Scan(&e.ID, &e.Rank); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (a *txAdapter) RanksAt(ctx context.Context, scope ir.ScopeKey, offset, limit int, exclude string) ([]int64, error) {
	return a.ranks(ctx, queryir.Select{
		From:    a.list.spec.Table,
		Columns: []string{colRank},
		Filter:  a.list.scopedFilter(scope, exclude),
		OrderBy: []queryir.Order{{Column: colRank}},
		Limit:   limit,
		Offset:  offset,
	})
}

func (a *txAdapter) Neighbors(ctx context.Context, scope ir.ScopeKey, r int64, dir rank.Direction, limit int, exclude string) ([]int64, error) {
	op, desc := queryir.Gt, false
	if dir == rank.Below {
		op, desc = queryir.Lt, true
	}
	return a.ranks(ctx, queryir.Select{
		From:    a.list.spec.Table,
		Columns: []string{colRank},
		Filter:  a.list.scopedFilter(scope, exclude, queryir.Compare{Field: colRank, Op: op, Value: ir.IRInt(r)}),
		OrderBy: []queryir.Order{{Column: colRank, Desc: desc}},
		Limit:   limit,
	})
}

func (a *txAdapter) MinRank(ctx context.Context, scope ir.ScopeKey, exclude string) (int64, bool, error) {
	v, err := a.aggregate(ctx, queryir.AggMin, scope, exclude)
	return v.Int64, v.Valid, err
}

func (a *txAdapter) MaxRank(ctx context.Context, scope ir.ScopeKey, exclude string) (int64, bool, error) {
	v, err := a.aggregate(ctx, queryir.AggMax, scope, exclude)
	return v.Int64, v.Valid, err
}

func (a *txAdapter) RankExists(ctx context.Context, scope ir.ScopeKey, r int64, exclude string) (bool, error) {
	found, err := a.ranks(ctx, queryir.Select{
		From:    a.list.spec.Table,
		Columns: []string{colRank},
		Filter:  a.list.scopedFilter(scope, exclude, queryir.Equals{Field: colRank, Value: ir.IRInt(r)}),
		Limit:   1,
	})
	return len(found) > 0, err
}

func (a *txAdapter) ShiftRanks(ctx context.Context, scope ir.ScopeKey, r rank.RankRange, delta int64, exclude string) (int64, error) {
	res, err := a.exec(ctx, queryir.Update{
		Table: a.list.spec.Table,
		Set:   []queryir.Assignment{queryir.AddDelta{Column: colRank, Delta: delta}},
		Filter: a.list.scopedFilter(scope, exclude,
			queryir.Between{Field: colRank, From: ir.IRInt(r.From), To: ir.IRInt(r.To)}),
	})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (a *txAdapter) SetRank(ctx context.Context, id string, r int64) error {
	_, err := a.exec(ctx, queryir.Update{
		Table:  a.list.spec.Table,
		Set:    []queryir.Assignment{queryir.SetValue{Column: colRank, Value: ir.IRInt(r)}},
		Filter: queryir.Equals{Field: colID, Value: ir.IRString(id)},
	})
	return err
}

func (a *txAdapter) Count(ctx context.Context, scope ir.ScopeKey, exclude string) (int, error) {
	text, params, err := a.list.store.compiler.Compile(queryir.Select{
		From:      a.list.spec.Table,
		Aggregate: &queryir.Aggregate{Func: queryir.AggCount},
		Filter:    a.list.scopedFilter(scope, exclude),
	})
	if err != nil {
		return 0, err
	}
	var n int
	if err := a.q.QueryRowContext(ctx, text, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}
