package rank

import (
	"context"
	"fmt"

	"github.com/roach88/ranked/internal/ir"
)

// settle makes sure the candidate in s is free and within bounds, and returns
// the rank the mutated record must take.
//
// Resolution order when the candidate is taken or out of bounds:
//  1. shift down: the scope starts above Min and the candidate is Max
//  2. shift up: the scope ends below Max-1 and the candidate is not past it
//  3. rebalance the whole scope
//
// The colliding row sorts before the incoming record only when it is the
// lower bound of s (appending after a record at Max); otherwise it sorts
// after. Each shift frees the slot on the matching side.
func (r *Ranker) settle(ctx context.Context, a Adapter, scope ir.ScopeKey, exclude string, s slot) (int64, error) {
	if r.inBounds(s.rank) {
		taken, err := a.RankExists(ctx, scope, s.rank, exclude)
		if err != nil {
			return 0, fmt.Errorf("rank exists: %w", err)
		}
		if !taken {
			return s.rank, nil
		}
	}

	first, ok, err := a.MinRank(ctx, scope, exclude)
	if err != nil {
		return 0, fmt.Errorf("min rank: %w", err)
	}
	last, _, err := a.MaxRank(ctx, scope, exclude)
	if err != nil {
		return 0, fmt.Errorf("max rank: %w", err)
	}
	if !ok {
		return r.clamp(s.rank), nil
	}

	collidedBefore := s.lowerRec && s.rank == s.lower

	switch {
	case first > r.cfg.Min && s.rank == r.cfg.Max:
		rng, target := RankRange{From: first, To: s.rank}, s.rank
		if !collidedBefore {
			rng.To, target = s.rank-1, s.rank-1
		}
		if err := r.shift(ctx, a, scope, rng, -1, exclude); err != nil {
			return 0, err
		}
		return target, nil

	case last < r.cfg.Max-1 && s.rank <= last:
		rng, target := RankRange{From: s.rank, To: last}, s.rank
		if collidedBefore {
			rng.From, target = s.rank+1, s.rank+1
		}
		if err := r.shift(ctx, a, scope, rng, 1, exclude); err != nil {
			return 0, err
		}
		return target, nil

	default:
		return r.rebalance(ctx, a, scope, exclude, s.rank, collidedBefore)
	}
}

// shift moves every rank in rng by delta.
func (r *Ranker) shift(ctx context.Context, a Adapter, scope ir.ScopeKey, rng RankRange, delta int64, exclude string) error {
	if rng.Empty() {
		return nil
	}

	rows, err := a.ShiftRanks(ctx, scope, rng, delta, exclude)
	if err != nil {
		return fmt.Errorf("shift ranks [%d, %d] by %d: %w", rng.From, rng.To, delta, err)
	}

	direction := "up"
	if delta < 0 {
		direction = "down"
	}
	shiftsTotal.WithLabelValues(direction).Inc()
	shiftRows.Observe(float64(rows))

	r.logger.Debug("shifted ranks",
		"scope", scope.String(),
		"from", rng.From,
		"to", rng.To,
		"delta", delta,
		"rows", rows)
	return nil
}

func (r *Ranker) clamp(rank int64) int64 {
	if rank < r.cfg.Min {
		return r.cfg.Min
	}
	if rank > r.cfg.Max {
		return r.cfg.Max
	}
	return rank
}
