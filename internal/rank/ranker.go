package rank

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ranked/internal/ir"
)

// Ranker computes ranks for one list configuration. It holds no per-scope
// state and is safe for concurrent use; each call runs against the Adapter
// (and therefore the transaction) passed to it.
type Ranker struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithLogger sets the logger used for shift, rebalance and capacity events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Ranker) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New validates cfg and returns a Ranker.
func New(cfg Config, opts ...Option) (*Ranker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Ranker{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the validated configuration.
func (r *Ranker) Config() Config {
	return r.cfg
}

// Mutation describes one change the host is about to persist.
type Mutation struct {
	// ID is the record's identity. The record is excluded from every
	// neighbour lookup made on its behalf.
	ID string

	// OldScope is the scope the record is persisted in (updates, deletes).
	OldScope ir.ScopeKey

	// NewScope is the scope the record should end up in (inserts, updates).
	// A nil NewScope on update means "unchanged".
	NewScope ir.ScopeKey

	// Rank is the record's persisted rank (updates, deletes).
	Rank int64

	// Position is the requested placement.
	Position Position
}

// Placement is the rank the host must persist for the mutated record.
type Placement struct {
	Rank    int64
	Changed bool
}

// BeforeInsert chooses the rank of a new record in m.NewScope. Positions
// None, MoveUp and MoveDown mean Append.
func (r *Ranker) BeforeInsert(ctx context.Context, a Adapter, m Mutation) (Placement, error) {
	scope := m.NewScope
	if err := a.LockScope(ctx, scope); err != nil {
		return Placement{}, fmt.Errorf("lock scope %s: %w", scope, err)
	}

	rank, err := r.place(ctx, a, scope, m.ID, m.Position.forInsert())
	if err != nil {
		return Placement{}, err
	}
	allocationsTotal.WithLabelValues(string(r.cfg.Mode), "insert").Inc()
	return Placement{Rank: rank, Changed: true}, nil
}

// BeforeUpdate repositions a persisted record. If the scope changes, the
// record leaves its old scope and is placed in the new one as a fresh
// insert. Otherwise Position None keeps the current rank.
//
// Rows other than the mutated record may be shifted or rebalanced; the
// mutated record's own rank is returned, not written.
func (r *Ranker) BeforeUpdate(ctx context.Context, a Adapter, m Mutation) (Placement, error) {
	newScope := m.NewScope
	if newScope == nil {
		newScope = m.OldScope
	}

	if !m.OldScope.Equal(newScope) {
		return r.transition(ctx, a, m, newScope)
	}

	if m.Position.Kind == PositionNone {
		return Placement{Rank: m.Rank}, nil
	}

	if err := a.LockScope(ctx, newScope); err != nil {
		return Placement{}, fmt.Errorf("lock scope %s: %w", newScope, err)
	}

	var (
		placement Placement
		err       error
	)
	if r.cfg.Mode == ModeDense {
		placement, err = r.denseMove(ctx, a, newScope, m.ID, m.Rank, m.Position)
	} else {
		placement, err = r.sparseMove(ctx, a, newScope, m.ID, m.Rank, m.Position)
	}
	if err != nil {
		return Placement{}, err
	}

	op := "update"
	if m.Position.IsMove() {
		op = "move"
	}
	if placement.Changed {
		allocationsTotal.WithLabelValues(string(r.cfg.Mode), op).Inc()
	}
	return placement, nil
}

// BeforeDelete releases the record's slot in m.OldScope. Sparse ranks leave
// no gap to close, so only dense mode touches other rows.
func (r *Ranker) BeforeDelete(ctx context.Context, a Adapter, m Mutation) error {
	if r.cfg.Mode != ModeDense {
		return nil
	}
	if err := a.LockScope(ctx, m.OldScope); err != nil {
		return fmt.Errorf("lock scope %s: %w", m.OldScope, err)
	}
	return r.denseRemove(ctx, a, m.OldScope, m.ID, m.Rank)
}

// Rebalance rewrites every rank in the scope: sparse scopes are spread
// evenly across [Min, Max], dense scopes are renumbered 0..n-1. It returns
// the number of rows written.
func (r *Ranker) Rebalance(ctx context.Context, a Adapter, scope ir.ScopeKey) (int, error) {
	if err := a.LockScope(ctx, scope); err != nil {
		return 0, fmt.Errorf("lock scope %s: %w", scope, err)
	}
	if r.cfg.Mode == ModeDense {
		return r.denseCompact(ctx, a, scope)
	}
	return r.spread(ctx, a, scope)
}

// transition moves a record between scopes: a delete from the old scope
// followed by an insert into the new one, inside the same transaction.
// Both scopes are locked in canonical key order so two opposite transitions
// cannot deadlock.
func (r *Ranker) transition(ctx context.Context, a Adapter, m Mutation, newScope ir.ScopeKey) (Placement, error) {
	first, second := m.OldScope, newScope
	if first.Compare(second) > 0 {
		first, second = second, first
	}
	for _, scope := range []ir.ScopeKey{first, second} {
		if err := a.LockScope(ctx, scope); err != nil {
			return Placement{}, fmt.Errorf("lock scope %s: %w", scope, err)
		}
	}

	if r.cfg.Mode == ModeDense {
		if err := r.denseRemove(ctx, a, m.OldScope, m.ID, m.Rank); err != nil {
			return Placement{}, err
		}
	}

	rank, err := r.place(ctx, a, newScope, m.ID, m.Position.forInsert())
	if err != nil {
		return Placement{}, err
	}

	r.logger.Debug("record changed scope",
		"id", m.ID,
		"from", m.OldScope.String(),
		"to", newScope.String(),
		"rank", rank)
	allocationsTotal.WithLabelValues(string(r.cfg.Mode), "transition").Inc()
	return Placement{Rank: rank, Changed: true}, nil
}

// place runs the insert path for pos (Index or Append) in scope.
func (r *Ranker) place(ctx context.Context, a Adapter, scope ir.ScopeKey, id string, pos Position) (int64, error) {
	if r.cfg.Mode == ModeDense {
		return r.denseInsert(ctx, a, scope, id, pos)
	}

	s, err := r.slotFor(ctx, a, scope, id, pos)
	if err != nil {
		return 0, err
	}
	return r.settle(ctx, a, scope, id, s)
}
