package rank

import (
	"context"
	"fmt"

	"github.com/roach88/ranked/internal/ir"
)

// rebalance rewrites the scope so the existing records plus the incoming one
// sit at equal steps across [Min, Max], and returns the incoming record's
// rank. The incoming record is spliced in where attempted would have put it:
// ahead of the first record ranked above attempted, or ahead of a record
// ranked exactly at attempted unless that record sorts before it.
//
// Rebalancing is whole-scope and in-transaction. When the range is too
// tight for a gap at Min the records are packed one apart starting at Min;
// only more records than integers in [Min, Max] is a capacity error, raised
// before any row is written.
func (r *Ranker) rebalance(ctx context.Context, a Adapter, scope ir.ScopeKey, exclude string, attempted int64, collidedBefore bool) (int64, error) {
	entries, err := a.OrderedRanks(ctx, scope, exclude)
	if err != nil {
		return 0, fmt.Errorf("ordered ranks: %w", err)
	}

	n := int64(len(entries)) + 1
	base, step := r.cfg.Min, (r.cfg.Max-r.cfg.Min)/n
	if step == 0 {
		if n-1 > r.cfg.Max-r.cfg.Min {
			capacityExhaustedTotal.Inc()
			r.logger.Warn("scope capacity exhausted",
				"scope", scope.String(),
				"records", n,
				"min", r.cfg.Min,
				"max", r.cfg.Max)
			return 0, NewCapacityError(scope, n, r.cfg)
		}
		base, step = r.cfg.Min-1, 1
	}

	splice := -1
	idx := int64(0)
	written := 0
	for _, e := range entries {
		if splice < 0 && (e.Rank > attempted || (!collidedBefore && e.Rank == attempted)) {
			splice = int(idx)
			idx++
		}
		next := base + step*(idx+1)
		if next != e.Rank {
			if err := a.SetRank(ctx, e.ID, next); err != nil {
				return 0, fmt.Errorf("set rank of %s: %w", e.ID, err)
			}
			written++
		}
		idx++
	}
	if splice < 0 {
		splice = int(idx)
	}

	rebalancesTotal.Inc()
	rebalanceRows.Observe(float64(written))
	r.logger.Info("rebalanced scope",
		"scope", scope.String(),
		"records", n,
		"step", step,
		"rows", written)

	return base + step*int64(splice+1), nil
}

// spread is the maintenance rebalance: it respaces the persisted records
// evenly, leaving a gap of one step at both ends. When the range is too
// tight for that it packs them one apart from Min.
func (r *Ranker) spread(ctx context.Context, a Adapter, scope ir.ScopeKey) (int, error) {
	entries, err := a.OrderedRanks(ctx, scope, "")
	if err != nil {
		return 0, fmt.Errorf("ordered ranks: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	n := int64(len(entries))
	base, step := r.cfg.Min, (r.cfg.Max-r.cfg.Min)/(n+1)
	if step == 0 {
		if n-1 > r.cfg.Max-r.cfg.Min {
			capacityExhaustedTotal.Inc()
			return 0, NewCapacityError(scope, n, r.cfg)
		}
		base, step = r.cfg.Min-1, 1
	}

	written := 0
	for i, e := range entries {
		next := base + step*int64(i+1)
		if next == e.Rank {
			continue
		}
		if err := a.SetRank(ctx, e.ID, next); err != nil {
			return 0, fmt.Errorf("set rank of %s: %w", e.ID, err)
		}
		written++
	}

	rebalancesTotal.Inc()
	rebalanceRows.Observe(float64(written))
	r.logger.Info("spread scope",
		"scope", scope.String(),
		"records", n,
		"step", step,
		"rows", written)
	return written, nil
}
