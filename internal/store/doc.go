// Package store provides SQLite-backed durable storage for keyboard runs.
//
// The store is an append-only log with:
//   - Runs: one per scenario execution, carrying the compiled config
//   - Cycles: one row per scan cycle with its inputs, report and digest
//   - Events: every keyswitch event the engine decided on
//
// # Critical Patterns
//
// Logical time: all ordering uses cycle and seq integers, never timestamps,
// so replay is independent of wall time.
//
// Deterministic queries: every multi-row read orders by (cycle, seq) or by
// run seq.
//
// Idempotent writes: inserts use ON CONFLICT DO NOTHING, so re-recording a
// cycle is a no-op.
//
// Self-contained runs: the config is stored as canonical JSON, which is
// valid CUE and compiles back to the same config, so replay needs only the
// database.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
