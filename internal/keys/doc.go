// Package keys defines the keystroke vocabulary shared by every other package:
// HID key codes, per-key flags, switch transition states, matrix addresses,
// and the ModSet bitmask used by the overlay engine.
//
// This package imports nothing internal. It sits below ir and engine so the
// core state machine can stay free of configuration and storage concerns.
//
// # Modifier encoding
//
// A ModSet stores one bit per HID modifier usage. Bit i corresponds to key
// code 0xE0+i, so the eight modifiers fill a single byte:
//
//	bit 0  LeftControl   bit 4  RightControl
//	bit 1  LeftShift     bit 5  RightShift
//	bit 2  LeftAlt       bit 6  RightAlt
//	bit 3  LeftGUI       bit 7  RightGUI
//
// Per-key flags only distinguish control, left alt, right alt, shift and gui.
// FlagsToModSet therefore maps CtrlHeld, ShiftHeld and GUIHeld onto the left
// bits; a key that needs RightShift cannot express it through flags.
package keys
