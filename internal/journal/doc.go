// Package journal provides SQLite-backed durable records of merge activity.
//
// The journal holds:
//   - Merge runs: one row per merge call the processor makes, successful or not
//   - Applied updates: the update files consumed by each run, with content hashes
//   - Project state: the processing state of each project (QUEUED, IDLE,
//     MERGING, SENDING, RECEIVING, HOLD) with progress and the last error
//
// Update files are deleted once merged, so the journal is the only record of
// what went into a base file.
//
// # Ordering
//
// Runs are ordered by seq, assigned at insert. Timestamps are informational.
// All queries include ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package journal
