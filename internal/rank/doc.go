// Package rank allocates order keys ("ranks") for records kept in a stable
// total order per scope.
//
// The package is storage-agnostic. It talks to the persistence layer only
// through the Adapter interface and is invoked synchronously inside the
// caller's transaction through three entry points:
//
//   - BeforeInsert: choose the rank of a new record
//   - BeforeUpdate: reposition a record, or move it to another scope
//   - BeforeDelete: release a record's slot
//
// # Sparse mode (default)
//
// Ranks are sparse integers in [Min, Max]. A new rank is the midpoint of its
// neighbours. When no integer is left between neighbours the collision is
// resolved with a one-step shift of a contiguous rank range, or, when there
// is no slack at either end, with a rebalance that spreads the whole scope
// evenly. Deleting a record never touches another row.
//
// # Dense mode
//
// Ranks are consecutive positions 0..n-1. Every insert and delete shifts the
// rows after it; out-of-range positions are rejected with
// POSITION_OUT_OF_RANGE instead of being clamped.
//
// # Locking
//
// Every entry point calls Adapter.LockScope before reading neighbours. The
// adapter must hold an exclusive lock on the scope until the enclosing
// transaction ends; Ranker itself has no in-process synchronisation.
package rank
