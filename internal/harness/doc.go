// Package harness runs keyboard scenarios against a compiled config.
//
// A scenario names a CUE config directory and a list of scan cycles. Each
// cycle lists the matrix addresses held down and any injected keys, and may
// carry an expect clause checked against the cycle record the keyboard
// produced. Assertions run after the last cycle:
//
//   - masked_count: total consumed events, read back from the run log
//   - layer_active / layer_inactive: a layer's visibility at a cycle
//   - never_locked_both: no modifier locked held and unheld at once
//   - no_release: the finalizer forced no modifier off
//
// Every run is recorded in a store, an in-memory one unless the caller
// supplies its own, and traces can be compared against golden files:
//
//	go test ./internal/harness -update
package harness
