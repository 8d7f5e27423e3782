package rank

import (
	"context"
	"fmt"

	"github.com/roach88/ranked/internal/ir"
)

// Dense mode stores the 0-based position itself in the rank column, so a
// scope of n records always holds exactly the ranks 0..n-1. Every placement
// shifts the rows between the old and the new position by one.

// denseInsert opens a slot at pos and returns it.
func (r *Ranker) denseInsert(ctx context.Context, a Adapter, scope ir.ScopeKey, id string, pos Position) (int64, error) {
	count, err := a.Count(ctx, scope, id)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	if int64(count) > r.cfg.Max {
		capacityExhaustedTotal.Inc()
		return 0, NewCapacityError(scope, int64(count)+1, r.cfg)
	}

	target := count
	if pos.Kind == PositionIndex {
		if pos.Index < 0 || pos.Index > count {
			return 0, NewPositionError(scope, pos.Index, count)
		}
		target = pos.Index
	}

	if target < count {
		rng := RankRange{From: int64(target), To: r.cfg.Max}
		if err := r.shift(ctx, a, scope, rng, 1, id); err != nil {
			return 0, err
		}
	}
	return int64(target), nil
}

// denseMove repositions the record currently at position cur.
func (r *Ranker) denseMove(ctx context.Context, a Adapter, scope ir.ScopeKey, id string, cur int64, pos Position) (Placement, error) {
	others, err := a.Count(ctx, scope, id)
	if err != nil {
		return Placement{}, fmt.Errorf("count: %w", err)
	}
	last := int64(others)

	var target int64
	switch pos.Kind {
	case PositionMoveUp:
		if cur <= 0 {
			return Placement{Rank: cur}, nil
		}
		target = cur - 1
	case PositionMoveDown:
		if cur >= last {
			return Placement{Rank: cur}, nil
		}
		target = cur + 1
	case PositionAppend:
		target = last
	case PositionIndex:
		if pos.Index < 0 || int64(pos.Index) > last {
			return Placement{}, NewPositionError(scope, pos.Index, others)
		}
		target = int64(pos.Index)
	default:
		return Placement{Rank: cur}, nil
	}

	switch {
	case target < cur:
		if err := r.shift(ctx, a, scope, RankRange{From: target, To: cur - 1}, 1, id); err != nil {
			return Placement{}, err
		}
	case target > cur:
		if err := r.shift(ctx, a, scope, RankRange{From: cur + 1, To: target}, -1, id); err != nil {
			return Placement{}, err
		}
	default:
		return Placement{Rank: cur}, nil
	}
	return Placement{Rank: target, Changed: true}, nil
}

// denseRemove closes the gap the record at position cur leaves behind.
func (r *Ranker) denseRemove(ctx context.Context, a Adapter, scope ir.ScopeKey, id string, cur int64) error {
	if cur >= r.cfg.Max {
		return nil
	}
	return r.shift(ctx, a, scope, RankRange{From: cur + 1, To: r.cfg.Max}, -1, id)
}

// denseCompact renumbers the scope to 0..n-1 in its current order.
func (r *Ranker) denseCompact(ctx context.Context, a Adapter, scope ir.ScopeKey) (int, error) {
	entries, err := a.OrderedRanks(ctx, scope, "")
	if err != nil {
		return 0, fmt.Errorf("ordered ranks: %w", err)
	}

	written := 0
	for i, e := range entries {
		if e.Rank == int64(i) {
			continue
		}
		if err := a.SetRank(ctx, e.ID, int64(i)); err != nil {
			return 0, fmt.Errorf("set rank of %s: %w", e.ID, err)
		}
		written++
	}

	rebalancesTotal.Inc()
	rebalanceRows.Observe(float64(written))
	r.logger.Info("compacted scope",
		"scope", scope.String(),
		"records", len(entries),
		"rows", written)
	return written, nil
}
