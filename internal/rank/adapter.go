package rank

import (
	"context"

	"github.com/roach88/ranked/internal/ir"
)

// Entry is one record's identity and rank inside a scope.
type Entry struct {
	ID   string
	Rank int64
}

// Direction selects which side of a rank a neighbour scan walks.
type Direction int

const (
	// Below scans toward smaller ranks (the front of the list), nearest first.
	Below Direction = iota
	// Above scans toward larger ranks (the back of the list), nearest first.
	Above
)

// RankRange is an inclusive range of ranks.
type RankRange struct {
	From int64
	To   int64
}

// Empty reports whether the range contains no rank.
func (r RankRange) Empty() bool {
	return r.From > r.To
}

// Adapter is the storage contract the ranker consumes. Implementations run
// every call inside the caller's transaction.
//
// Every scoped query takes an exclude id: the record being mutated is
// invisible to its own neighbour lookups. An empty exclude id excludes
// nothing.
type Adapter interface {
	// LockScope takes an exclusive lock over every row of the scope, held
	// until the enclosing transaction ends.
	LockScope(ctx context.Context, scope ir.ScopeKey) error

	// OrderedRanks returns the scope's records in ascending rank order.
	OrderedRanks(ctx context.Context, scope ir.ScopeKey, exclude string) ([]Entry, error)

	// RanksAt returns up to limit ranks starting at the 0-based offset of
	// the ascending order.
	RanksAt(ctx context.Context, scope ir.ScopeKey, offset, limit int, exclude string) ([]int64, error)

	// Neighbors returns up to limit ranks strictly below (descending) or
	// strictly above (ascending) the given rank.
	Neighbors(ctx context.Context, scope ir.ScopeKey, rank int64, dir Direction, limit int, exclude string) ([]int64, error)

	// MinRank and MaxRank report the scope's extreme ranks; ok is false
	// for an empty scope.
	MinRank(ctx context.Context, scope ir.ScopeKey, exclude string) (rank int64, ok bool, err error)
	MaxRank(ctx context.Context, scope ir.ScopeKey, exclude string) (rank int64, ok bool, err error)

	// RankExists reports whether a record in the scope holds rank.
	RankExists(ctx context.Context, scope ir.ScopeKey, rank int64, exclude string) (bool, error)

	// ShiftRanks adds delta (+1 or -1) to every rank within r and returns
	// the number of rows changed.
	ShiftRanks(ctx context.Context, scope ir.ScopeKey, r RankRange, delta int64, exclude string) (int64, error)

	// SetRank writes one record's rank.
	SetRank(ctx context.Context, id string, rank int64) error

	// Count returns the number of records in the scope.
	Count(ctx context.Context, scope ir.ScopeKey, exclude string) (int, error)
}
