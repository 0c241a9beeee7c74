// Package engine implements the modifier-layer arbitration core.
//
// The engine decides, for every keyswitch transition, whether the event may
// pass or must be masked, and drives which overlay layers are visible. It
// runs inside a larger keystroke pipeline that owns scanning, the layer stack
// and the HID report; those are reached through the Layers and Device
// interfaces.
//
// ARCHITECTURE:
//
// Three-Phase Cycle:
// The pipeline calls the engine in a fixed order once per scan cycle:
//  1. OnKeyswitchEvent for each key, in scan order
//  2. BeforeReportingState once, before the HID report is sent
//  3. AfterEachCycle once, after the report is sent
//
// Double-Buffered Locks:
// Lock sets are split into a current half, which events read and extend, and
// a next half, which only accumulates. AfterEachCycle promotes next to
// current. Every event in a cycle therefore sees the previous cycle's
// outcome plus whatever earlier events in the same cycle added.
//
// Per-Key Requirements:
// When a key goes down the engine latches the modifiers that must read as
// unheld while it stays down: the mask of the overlay rule that put the
// key's layer on screen, minus modifiers the key's own flags supply.
//
// INVARIANTS:
//   - A modifier is never in both LockedHeld and LockedUnheld.
//     A contradicting event is masked instead of updating either set.
//   - Overlay rules are scanned in table order; the last matching rule wins.
//   - No allocation on the event path. The requirement store is sized once
//     from the matrix geometry.
//
// The engine is single-threaded. It has no locks; callers must not invoke
// it from more than one goroutine.
package engine
