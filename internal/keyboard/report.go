package keyboard

import "github.com/roach88/modlayers/internal/keys"

// ReportSlots is the number of key slots in a boot keyboard report.
const ReportSlots = 6

// Report is a HID boot keyboard report. On the wire it is the modifier
// byte, a reserved byte and six key slots.
type Report struct {
	Modifiers keys.ModSet
	Keys      [ReportSlots]keys.KeyCode
}

// Press adds k to the report: its modifier flags, and its keycode either as
// a modifier bit or in the first free slot. Synthetic keys and NoKey add
// nothing. Press reports false when the key was dropped for lack of a slot.
func (r *Report) Press(k keys.Key) bool {
	if k.IsSynthetic() || k.IsTransparent() {
		return true
	}
	r.Modifiers |= keys.FlagsToModSet(k.Flags)
	switch {
	case k.Code == 0:
		return true
	case k.Code.IsModifier():
		r.Modifiers |= keys.ModOf(k.Code)
		return true
	}
	free := -1
	for i, c := range r.Keys {
		if c == k.Code {
			return true
		}
		if c == 0 && free < 0 {
			free = i
		}
	}
	if free < 0 {
		return false
	}
	r.Keys[free] = k.Code
	return true
}

// ReleaseModifier clears the bit for code. Non-modifier codes are ignored.
func (r *Report) ReleaseModifier(code keys.KeyCode) {
	if code.IsModifier() {
		r.Modifiers &^= keys.ModOf(code)
	}
}

// Has reports whether code is present as a slot or a modifier bit.
func (r *Report) Has(code keys.KeyCode) bool {
	if code.IsModifier() {
		return r.Modifiers.Has(code)
	}
	for _, c := range r.Keys {
		if c != 0 && c == code {
			return true
		}
	}
	return false
}

// Clear empties the report.
func (r *Report) Clear() { *r = Report{} }

// Bytes returns the 8-byte wire layout.
func (r *Report) Bytes() [8]byte {
	var b [8]byte
	b[0] = byte(r.Modifiers)
	for i, c := range r.Keys {
		b[2+i] = byte(c)
	}
	return b
}
