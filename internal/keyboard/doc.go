// Package keyboard simulates the firmware pipeline around the modifier-layer
// engine.
//
// A Keyboard owns the collaborators the engine needs: a LayerStack that
// resolves keys and shows or hides overlay layers, a Matrix that records
// masked keys, and a Report that models the HID boot keyboard report. Each
// call to Cycle runs one scan-process-report-commit pass:
//
//  1. Scan: derive each address's transition from the previous and current
//     pressed sets and visit addresses in row-major order.
//  2. Process: resolve the mapped key and hand the event to the engine;
//     events that pass add their key to the report.
//  3. Inject: run injected keys through the engine and into the report.
//  4. Finalize: the engine releases locked-unheld modifiers and toggles
//     overlays.
//  5. Commit: capture the report and advance the engine's buffers.
//
// Idle addresses produce no event. The result of every cycle is an
// ir.CycleRecord, which the harness compares against goldens and the store
// persists.
package keyboard
