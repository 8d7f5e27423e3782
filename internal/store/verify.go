package store

import (
	"context"
	"fmt"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/rank"
)

// ViolationKind names a broken ordering invariant.
type ViolationKind string

const (
	// ViolationDuplicate: two records of one scope share a rank.
	ViolationDuplicate ViolationKind = "duplicate_rank"
	// ViolationOutOfBounds: a rank lies outside [Min, Max].
	ViolationOutOfBounds ViolationKind = "out_of_bounds"
	// ViolationGap: a dense scope is not numbered 0..n-1.
	ViolationGap ViolationKind = "dense_gap"
)

// Violation is one problem found by Verify.
type Violation struct {
	Kind  ViolationKind
	Scope ir.ScopeKey
	ID    string
	Rank  int64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: record %s rank %d in scope %s", v.Kind, v.ID, v.Rank, v.Scope)
}

// Verify scans every scope and reports records that break the ordering
// invariants. Rows written only through List never produce violations;
// Verify exists for tables that were edited by hand or by other tools.
func (l *List) Verify(ctx context.Context) ([]Violation, error) {
	scopes, err := l.Scopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}

	violations := []Violation{}
	for _, scope := range scopes {
		recs, err := l.Records(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		violations = append(violations, l.checkScope(scope, recs)...)
	}

	if len(violations) > 0 {
		l.logger.Warn("list verification failed", "violations", len(violations))
	}
	return violations, nil
}

// checkScope inspects one scope's records in rank order.
func (l *List) checkScope(scope ir.ScopeKey, recs []Record) []Violation {
	var out []Violation
	for i, rec := range recs {
		if rec.Rank < l.spec.Min || rec.Rank > l.spec.Max {
			out = append(out, Violation{Kind: ViolationOutOfBounds, Scope: scope, ID: rec.ID, Rank: rec.Rank})
		}
		if i > 0 && recs[i-1].Rank == rec.Rank {
			out = append(out, Violation{Kind: ViolationDuplicate, Scope: scope, ID: rec.ID, Rank: rec.Rank})
		}
		if rank.Mode(l.spec.Mode) == rank.ModeDense && rec.Rank != int64(i) {
			out = append(out, Violation{Kind: ViolationGap, Scope: scope, ID: rec.ID, Rank: rec.Rank})
		}
	}
	return out
}
