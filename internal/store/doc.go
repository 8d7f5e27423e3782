// Package store provides SQLite-backed persistence for ranked lists.
//
// A Store owns one database. Each list opened with Store.List gets its own
// record table (id, one column per scope field, rank, payload) and an index
// on (scope..., rank). List mutations run in a single transaction each:
//
//	BEGIN IMMEDIATE
//	  Ranker.Before{Insert,Update,Delete}(txAdapter)   lock scope, read
//	                                                   neighbours, shift or
//	                                                   rebalance other rows
//	  write the mutated row
//	COMMIT (or ROLLBACK on any error)
//
// # Critical Patterns
//
// Deterministic reads:
//   - Every row query ends with ORDER BY ..., id (see querysql)
//
// Scope locking:
//   - Transactions start with _txlock=immediate, so the write lock is taken
//     at BEGIN; LockScope additionally touches every row of the scope
//   - One pooled connection serialises writers inside the process
//
// Conflicts:
//   - SQLITE_BUSY and SQLITE_LOCKED (either driver) surface as
//     rank.ErrCodeConcurrencyConflict wrapping the driver error; the store
//     never retries
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Two drivers are supported: github.com/mattn/go-sqlite3 ("sqlite3", cgo,
// the default) and modernc.org/sqlite ("sqlite", pure Go).
package store
