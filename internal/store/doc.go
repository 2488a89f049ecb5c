// Package store provides a SQLite-backed ledger of generation runs.
//
// Every recorded run keeps what is needed to regenerate its batch: the
// blueprint source text and format, the seed and the number of items. The
// batch fingerprint stored next to them lets a later replay prove that the
// same inputs still produce byte-identical output.
//
// # Tables
//
//   - runs: one row per generation run, ordered by seq
//   - verifications: one row per replay of a run, with its outcome
//
// Listing queries order by seq, never by wall time, so results are stable
// even when several runs share a timestamp.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
