package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/rank"
)

// MemAdapter is an in-memory rank.Adapter for ranker tests.
//
// It keeps one row per id and answers every query by scanning. Ties on rank
// are ordered by id, matching the SQL adapter's ORDER BY rank, id.
//
// Thread-safety: all methods lock an internal mutex. LockScope only records
// the call; tests that need real isolation use the SQLite store.
type MemAdapter struct {
	mu    sync.Mutex
	rows  map[string]*memRow
	locks []string
}

type memRow struct {
	scope ir.ScopeKey
	rank  int64
}

var _ rank.Adapter = (*MemAdapter)(nil)

// NewMemAdapter creates an empty adapter.
func NewMemAdapter() *MemAdapter {
	return &MemAdapter{rows: make(map[string]*memRow)}
}

// Put persists a row, replacing any row with the same id.
func (m *MemAdapter) Put(id string, scope ir.ScopeKey, rank int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id] = &memRow{scope: scope.Clone(), rank: rank}
}

// Remove drops a row.
func (m *MemAdapter) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
}

// RankOf returns the persisted rank of id.
func (m *MemAdapter) RankOf(id string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return 0, false
	}
	return row.rank, true
}

// IDs returns the ids of the scope in rank order.
func (m *MemAdapter) IDs(scope ir.ScopeKey) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ordered(scope, "")
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

// Ranks returns the ranks of the scope keyed by id.
func (m *MemAdapter) Ranks(scope ir.ScopeKey) map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, e := range m.ordered(scope, "") {
		out[e.ID] = e.Rank
	}
	return out
}

// Locks returns the canonical scope keys passed to LockScope, in call order.
func (m *MemAdapter) Locks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.locks)
}

// ResetLocks forgets the recorded LockScope calls.
func (m *MemAdapter) ResetLocks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = nil
}

// ordered must be called with mu held.
func (m *MemAdapter) ordered(scope ir.ScopeKey, exclude string) []rank.Entry {
	var entries []rank.Entry
	for id, row := range m.rows {
		if id == exclude || !row.scope.Equal(scope) {
			continue
		}
		entries = append(entries, rank.Entry{ID: id, Rank: row.rank})
	}
	slices.SortFunc(entries, func(a, b rank.Entry) int {
		if a.Rank != b.Rank {
			if a.Rank < b.Rank {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return entries
}

func (m *MemAdapter) LockScope(_ context.Context, scope ir.ScopeKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = append(m.locks, scope.String())
	return nil
}

func (m *MemAdapter) OrderedRanks(_ context.Context, scope ir.ScopeKey, exclude string) ([]rank.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ordered(scope, exclude), nil
}

func (m *MemAdapter) RanksAt(_ context.Context, scope ir.ScopeKey, offset, limit int, exclude string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ordered(scope, exclude)
	var out []int64
	for i := offset; i < len(entries) && len(out) < limit; i++ {
		out = append(out, entries[i].Rank)
	}
	return out, nil
}

func (m *MemAdapter) Neighbors(_ context.Context, scope ir.ScopeKey, r int64, dir rank.Direction, limit int, exclude string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ordered(scope, exclude)
	var out []int64
	if dir == rank.Below {
		for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
			if entries[i].Rank < r {
				out = append(out, entries[i].Rank)
			}
		}
		return out, nil
	}
	for i := 0; i < len(entries) && len(out) < limit; i++ {
		if entries[i].Rank > r {
			out = append(out, entries[i].Rank)
		}
	}
	return out, nil
}

func (m *MemAdapter) MinRank(_ context.Context, scope ir.ScopeKey, exclude string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ordered(scope, exclude)
	if len(entries) == 0 {
		return 0, false, nil
	}
	return entries[0].Rank, true, nil
}

func (m *MemAdapter) MaxRank(_ context.Context, scope ir.ScopeKey, exclude string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.ordered(scope, exclude)
	if len(entries) == 0 {
		return 0, false, nil
	}
	return entries[len(entries)-1].Rank, true, nil
}

func (m *MemAdapter) RankExists(_ context.Context, scope ir.ScopeKey, r int64, exclude string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.ordered(scope, exclude) {
		if e.Rank == r {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemAdapter) ShiftRanks(_ context.Context, scope ir.ScopeKey, r rank.RankRange, delta int64, exclude string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, row := range m.rows {
		if id == exclude || !row.scope.Equal(scope) {
			continue
		}
		if row.rank >= r.From && row.rank <= r.To {
			row.rank += delta
			n++
		}
	}
	return n, nil
}

func (m *MemAdapter) SetRank(_ context.Context, id string, r int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok {
		row.rank = r
	}
	return nil
}

func (m *MemAdapter) Count(_ context.Context, scope ir.ScopeKey, exclude string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ordered(scope, exclude)), nil
}
