package rank

import (
	"context"
	"fmt"

	"github.com/roach88/ranked/internal/ir"
)

// slot is a candidate rank together with the bounds it was derived from.
// A bound that is not an existing record's rank is the Min or Max sentinel.
type slot struct {
	rank     int64
	lower    int64
	upper    int64
	lowerRec bool
	upperRec bool
}

// admits reports whether rank already sorts correctly between the bounds.
// A sentinel bound may be occupied; a record bound may not.
func (s slot) admits(rank int64) bool {
	aboveLower := rank > s.lower || (!s.lowerRec && rank == s.lower)
	belowUpper := rank < s.upper || (!s.upperRec && rank == s.upper)
	return aboveLower && belowUpper
}

// midpoint returns b + (a-b)/2 for a >= b, rounding half away from b.
// The same bounds always produce the same rank, and when a and b are one
// apart the result is a, so a degenerate gap collides with the upper bound.
func midpoint(a, b int64) int64 {
	if a < b {
		a, b = b, a
	}
	return b + (a-b+1)/2
}

// slotFor computes the candidate slot for an insert-style position.
func (r *Ranker) slotFor(ctx context.Context, a Adapter, scope ir.ScopeKey, exclude string, pos Position) (slot, error) {
	if pos.Kind != PositionIndex {
		return r.appendSlot(ctx, a, scope, exclude)
	}
	return r.indexSlot(ctx, a, scope, exclude, pos.Index)
}

// appendSlot places the candidate between the current last rank (or Min)
// and Max.
func (r *Ranker) appendSlot(ctx context.Context, a Adapter, scope ir.ScopeKey, exclude string) (slot, error) {
	last, ok, err := a.MaxRank(ctx, scope, exclude)
	if err != nil {
		return slot{}, fmt.Errorf("max rank: %w", err)
	}

	s := slot{lower: r.cfg.Min, upper: r.cfg.Max}
	if ok {
		s.lower, s.lowerRec = last, true
	}
	s.rank = midpoint(s.upper, s.lower)
	return s, nil
}

// indexSlot places the candidate between the ranks at index-1 and index.
// Indices are clamped into [0, count]; count addresses the tail.
func (r *Ranker) indexSlot(ctx context.Context, a Adapter, scope ir.ScopeKey, exclude string, index int) (slot, error) {
	count, err := a.Count(ctx, scope, exclude)
	if err != nil {
		return slot{}, fmt.Errorf("count: %w", err)
	}
	if index < 0 {
		index = 0
	}
	if index >= count {
		return r.appendSlot(ctx, a, scope, exclude)
	}

	s := slot{lower: r.cfg.Min, upper: r.cfg.Max}
	if index == 0 {
		ranks, err := a.RanksAt(ctx, scope, 0, 1, exclude)
		if err != nil {
			return slot{}, fmt.Errorf("ranks at 0: %w", err)
		}
		if len(ranks) > 0 {
			s.upper, s.upperRec = ranks[0], true
		}
	} else {
		ranks, err := a.RanksAt(ctx, scope, index-1, 2, exclude)
		if err != nil {
			return slot{}, fmt.Errorf("ranks at %d: %w", index-1, err)
		}
		if len(ranks) > 0 {
			s.lower, s.lowerRec = ranks[0], true
		}
		if len(ranks) > 1 {
			s.upper, s.upperRec = ranks[1], true
		}
	}
	s.rank = midpoint(s.upper, s.lower)
	return s, nil
}

// moveSlot computes the slot one step up (dir Below) or down (dir Above)
// from current. ok is false when the record is already at that end.
func (r *Ranker) moveSlot(ctx context.Context, a Adapter, scope ir.ScopeKey, exclude string, current int64, dir Direction) (s slot, ok bool, err error) {
	ranks, err := a.Neighbors(ctx, scope, current, dir, 2, exclude)
	if err != nil {
		return slot{}, false, fmt.Errorf("neighbors of %d: %w", current, err)
	}
	if len(ranks) == 0 {
		return slot{}, false, nil
	}

	if dir == Below {
		s = slot{upper: ranks[0], upperRec: true, lower: r.cfg.Min}
		if len(ranks) > 1 {
			s.lower, s.lowerRec = ranks[1], true
		}
	} else {
		s = slot{lower: ranks[0], lowerRec: true, upper: r.cfg.Max}
		if len(ranks) > 1 {
			s.upper, s.upperRec = ranks[1], true
		}
	}
	s.rank = midpoint(s.upper, s.lower)
	return s, true, nil
}

// sparseMove repositions a record within its scope.
func (r *Ranker) sparseMove(ctx context.Context, a Adapter, scope ir.ScopeKey, id string, current int64, pos Position) (Placement, error) {
	var s slot
	switch pos.Kind {
	case PositionMoveUp, PositionMoveDown:
		dir := Below
		if pos.Kind == PositionMoveDown {
			dir = Above
		}
		moved, ok, err := r.moveSlot(ctx, a, scope, id, current, dir)
		if err != nil {
			return Placement{}, err
		}
		if !ok {
			return Placement{Rank: current}, nil
		}
		s = moved
	default:
		target, err := r.slotFor(ctx, a, scope, id, pos)
		if err != nil {
			return Placement{}, err
		}
		if r.inBounds(current) && target.admits(current) {
			return Placement{Rank: current}, nil
		}
		s = target
	}

	rank, err := r.settle(ctx, a, scope, id, s)
	if err != nil {
		return Placement{}, err
	}
	return Placement{Rank: rank, Changed: rank != current}, nil
}

func (r *Ranker) inBounds(rank int64) bool {
	return rank >= r.cfg.Min && rank <= r.cfg.Max
}
