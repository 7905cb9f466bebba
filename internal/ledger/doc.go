// Package ledger provides the SQLite-backed assertion ledger: an
// append-only record of conformance probe outcomes, the discovered
// properties a probe reports alongside them, and the status of each test
// case.
//
// # Ordering
//
// Every table carries a seq INTEGER PRIMARY KEY assigned on insert. All
// reads ORDER BY seq, so assertions come back in the order they were
// appended regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: incremental migrations
//
// Assertions are never updated or deleted. Test case rows are upserted as a
// case moves through its status machine.
package ledger
