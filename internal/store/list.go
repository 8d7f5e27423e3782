package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/queryir"
	"github.com/roach88/ranked/internal/rank"
)

// Record is one persisted row of a list.
type Record struct {
	ID      string
	Scope   ir.ScopeKey
	Rank    int64
	Payload string
}

// List is a handle on one list definition. All mutations run in their own
// transaction; a List is safe for concurrent use.
type List struct {
	store  *Store
	spec   ir.ListSpec
	ranker *rank.Ranker
	logger *slog.Logger
}

// List registers spec (creating its table on first use) and returns its
// handle. The spec must already be validated by the compiler. Handles are
// cached per name; asking again with a different definition for the same
// name fails with ErrListMismatch.
func (s *Store) List(ctx context.Context, spec ir.ListSpec) (*List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.lists[spec.Name]; ok {
		if err := sameDefinition(spec, l.spec); err != nil {
			return nil, err
		}
		return l, nil
	}

	logger := s.logger.With("list", spec.Name)
	ranker, err := rank.New(rank.ConfigFromSpec(spec), rank.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", spec.Name, err)
	}

	var created bool
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		created, err = registerList(ctx, tx, spec)
		return err
	})
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("list created", "table", spec.Table, "mode", spec.Mode, "min", spec.Min, "max", spec.Max)
	}

	l := &List{store: s, spec: spec, ranker: ranker, logger: logger}
	s.lists[spec.Name] = l
	return l, nil
}

// Spec returns the list definition.
func (l *List) Spec() ir.ListSpec {
	return l.spec
}

// InsertRequest describes a new record.
type InsertRequest struct {
	// ID is the record id; empty means generate one.
	ID       string
	Scope    ir.ScopeKey
	Payload  string
	Position rank.Position
}

// UpdateRequest describes a change to an existing record. Zero fields keep
// the current value.
type UpdateRequest struct {
	// Scope is the new scope; nil keeps the current one.
	Scope ir.ScopeKey
	// Payload replaces the payload when non-nil.
	Payload *string
	// Position repositions the record; None keeps its rank unless the
	// scope changes, in which case it appends.
	Position rank.Position
}

// Insert creates a record at the requested position.
func (l *List) Insert(ctx context.Context, req InsertRequest) (Record, error) {
	scope, err := l.normalizeScope(req.Scope)
	if err != nil {
		return Record{}, fmt.Errorf("insert: %w", err)
	}
	id := req.ID
	if id == "" {
		id = l.store.ids.Generate()
	}

	var rec Record
	err = l.store.withTx(ctx, func(tx *sql.Tx) error {
		a := l.adapter(tx)
		if _, err := l.get(ctx, tx, id); err == nil {
			return fmt.Errorf("insert %s: %w", id, ErrAlreadyExists)
		} else if !IsNotFound(err) {
			return err
		}

		placement, err := l.ranker.BeforeInsert(ctx, a, rank.Mutation{
			ID:       id,
			NewScope: scope,
			Position: req.Position,
		})
		if err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}

		rec = Record{ID: id, Scope: scope, Rank: placement.Rank, Payload: req.Payload}
		cols, vals := l.rowValues(rec)
		if _, err := a.exec(ctx, queryir.Insert{Table: l.spec.Table, Columns: cols, Values: vals}); err != nil {
			return fmt.Errorf("insert %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	l.logger.Debug("record inserted", "id", rec.ID, "scope", rec.Scope.String(), "rank", rec.Rank)
	return rec, nil
}

// Update changes a record's scope, payload or position.
func (l *List) Update(ctx context.Context, id string, req UpdateRequest) (Record, error) {
	var newScope ir.ScopeKey
	if req.Scope != nil {
		var err error
		if newScope, err = l.normalizeScope(req.Scope); err != nil {
			return Record{}, fmt.Errorf("update %s: %w", id, err)
		}
	}

	var rec Record
	err := l.store.withTx(ctx, func(tx *sql.Tx) error {
		a := l.adapter(tx)
		cur, err := l.get(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}

		placement, err := l.ranker.BeforeUpdate(ctx, a, rank.Mutation{
			ID:       id,
			OldScope: cur.Scope,
			NewScope: newScope,
			Rank:     cur.Rank,
			Position: req.Position,
		})
		if err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}

		rec = cur
		rec.Rank = placement.Rank
		if newScope != nil {
			rec.Scope = newScope
		}
		if req.Payload != nil {
			rec.Payload = *req.Payload
		}

		cols, vals := l.rowValues(rec)
		set := make([]queryir.Assignment, 0, len(cols)-1)
		for i, c := range cols[1:] {
			set = append(set, queryir.SetValue{Column: c, Value: vals[i+1]})
		}
		_, err = a.exec(ctx, queryir.Update{
			Table:  l.spec.Table,
			Set:    set,
			Filter: queryir.Equals{Field: colID, Value: ir.IRString(id)},
		})
		if err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	l.logger.Debug("record updated", "id", rec.ID, "scope", rec.Scope.String(), "rank", rec.Rank)
	return rec, nil
}

// Move repositions a record within its scope.
func (l *List) Move(ctx context.Context, id string, pos rank.Position) (Record, error) {
	return l.Update(ctx, id, UpdateRequest{Position: pos})
}

// Delete removes a record. Sparse lists touch no other row; dense lists
// close the gap.
func (l *List) Delete(ctx context.Context, id string) error {
	err := l.store.withTx(ctx, func(tx *sql.Tx) error {
		a := l.adapter(tx)
		cur, err := l.get(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}

		if err := l.ranker.BeforeDelete(ctx, a, rank.Mutation{ID: id, OldScope: cur.Scope, Rank: cur.Rank}); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}

		_, err = a.exec(ctx, queryir.Delete{
			Table:  l.spec.Table,
			Filter: queryir.Equals{Field: colID, Value: ir.IRString(id)},
		})
		if err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Debug("record deleted", "id", id)
	return nil
}

// Rebalance respaces one scope and returns the number of rows rewritten.
func (l *List) Rebalance(ctx context.Context, scope ir.ScopeKey) (int, error) {
	scope, err := l.normalizeScope(scope)
	if err != nil {
		return 0, fmt.Errorf("rebalance: %w", err)
	}

	var n int
	err = l.store.withTx(ctx, func(tx *sql.Tx) error {
		n, err = l.ranker.Rebalance(ctx, l.adapter(tx), scope)
		if err != nil {
			return fmt.Errorf("rebalance %s: %w", scope, err)
		}
		return nil
	})
	return n, err
}

// Get returns one record.
func (l *List) Get(ctx context.Context, id string) (Record, error) {
	return l.get(ctx, l.store.db, id)
}

// Records returns the records of a scope in rank order.
func (l *List) Records(ctx context.Context, scope ir.ScopeKey) ([]Record, error) {
	scope, err := l.normalizeScope(scope)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	recs, err := l.selectRecords(ctx, l.store.db, l.scopeFilter(scope))
	if err != nil {
		return nil, fmt.Errorf("records %s: %w", scope, err)
	}
	return recs, nil
}

// Scopes returns every scope that holds at least one record, in canonical
// column order.
func (l *List) Scopes(ctx context.Context) ([]ir.ScopeKey, error) {
	a := l.adapter(l.store.db)

	if len(l.spec.Scope) == 0 {
		n, err := a.Count(ctx, ir.ScopeKey{}, "")
		if err != nil {
			return nil, fmt.Errorf("scopes: %w", err)
		}
		if n == 0 {
			return []ir.ScopeKey{}, nil
		}
		return []ir.ScopeKey{{}}, nil
	}

	rows, err := a.query(ctx, queryir.Select{
		From:     l.spec.Table,
		Columns:  l.spec.ScopeFieldNames(),
		Distinct: true,
	})
	if err != nil {
		return nil, fmt.Errorf("scopes: %w", err)
	}
	defer rows.Close()

	scopes := []ir.ScopeKey{}
	for rows.Next() {
		raw := make([]any, len(l.spec.Scope))
		ptrs := make([]any, len(raw))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		key, err := l.scopeFromColumns(raw)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scopes: %w", err)
	}
	return scopes, nil
}

// normalizeScope checks a key against the list's scope fields. A nil key on
// an unscoped list is the empty key.
func (l *List) normalizeScope(scope ir.ScopeKey) (ir.ScopeKey, error) {
	if scope == nil {
		scope = ir.ScopeKey{}
	}
	key := make(ir.ScopeKey, len(scope))
	for i, v := range scope {
		if v == nil {
			v = ir.IRNull{}
		}
		key[i] = v
	}
	if err := key.Validate(l.spec.Scope); err != nil {
		return nil, err
	}
	return key, nil
}

// rowValues returns the column list and values for a full row write, with
// id first.
func (l *List) rowValues(rec Record) ([]string, []ir.IRValue) {
	cols := make([]string, 0, len(l.spec.Scope)+3)
	vals := make([]ir.IRValue, 0, cap(cols))
	cols = append(cols, colID)
	vals = append(vals, ir.IRString(rec.ID))
	for i, f := range l.spec.Scope {
		cols = append(cols, f.Name)
		vals = append(vals, rec.Scope[i])
	}
	cols = append(cols, colRank, colPayload)
	vals = append(vals, ir.IRInt(rec.Rank), ir.IRString(rec.Payload))
	return cols, vals
}

func (l *List) recordColumns() []string {
	cols := []string{colID}
	cols = append(cols, l.spec.ScopeFieldNames()...)
	return append(cols, colRank, colPayload)
}

func (l *List) get(ctx context.Context, q queryer, id string) (Record, error) {
	recs, err := l.selectRecords(ctx, q, queryir.Equals{Field: colID, Value: ir.IRString(id)})
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	if len(recs) == 0 {
		return Record{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return recs[0], nil
}

func (l *List) selectRecords(ctx context.Context, q queryer, filter queryir.Predicate) ([]Record, error) {
	rows, err := l.adapter(q).query(ctx, queryir.Select{
		From:    l.spec.Table,
		Columns: l.recordColumns(),
		Filter:  filter,
		OrderBy: []queryir.Order{{Column: colRank}},
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := l.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return recs, nil
}

func (l *List) scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	raw := make([]any, len(l.spec.Scope))
	dest := make([]any, 0, len(raw)+3)
	dest = append(dest, &rec.ID)
	for i := range raw {
		dest = append(dest, &raw[i])
	}
	dest = append(dest, &rec.Rank, &rec.Payload)

	if err := rows.Scan(dest...); err != nil {
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	scope, err := l.scopeFromColumns(raw)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Scope = scope
	return rec, nil
}

func (l *List) scopeFromColumns(raw []any) (ir.ScopeKey, error) {
	key := make(ir.ScopeKey, len(raw))
	for i, f := range l.spec.Scope {
		v, err := f.FromColumn(raw[i])
		if err != nil {
			return nil, err
		}
		key[i] = v
	}
	return key, nil
}
