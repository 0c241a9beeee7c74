// Package ir provides the shared data model for modlayers: compiled keyboard
// configs (keymap, layer names, overlay table) and the per-cycle records the
// pipeline emits.
//
// ir imports only internal/keys. The compiler produces ir.Config, the engine
// consumes ir.OverlayTable, and the harness and store exchange
// ir.CycleRecord values.
//
// Key design constraints:
//   - Overlay tables are sentinel terminated; every scan is also bounded by
//     the slice length
//   - Canonical JSON (RFC 8785) is the only serialization used for hashes and
//     golden traces
//   - Cycle numbers are logical, never wall-clock time
package ir
