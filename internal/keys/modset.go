package keys

import (
	"fmt"
	"math/bits"
	"strings"
)

// ModSet is a set of HID modifiers, one bit per usage 0xE0..0xE7.
type ModSet uint8

const (
	ModLeftControl  ModSet = 1 << (LeftControl - FirstModifier)
	ModLeftShift    ModSet = 1 << (LeftShift - FirstModifier)
	ModLeftAlt      ModSet = 1 << (LeftAlt - FirstModifier)
	ModLeftGUI      ModSet = 1 << (LeftGUI - FirstModifier)
	ModRightControl ModSet = 1 << (RightControl - FirstModifier)
	ModRightShift   ModSet = 1 << (RightShift - FirstModifier)
	ModRightAlt     ModSet = 1 << (RightAlt - FirstModifier)
	ModRightGUI     ModSet = 1 << (RightGUI - FirstModifier)

	ModNone ModSet = 0
)

// ModOf returns the single-bit set for a modifier key code, or ModNone for
// any other code.
func ModOf(c KeyCode) ModSet {
	if !c.IsModifier() {
		return ModNone
	}
	return 1 << (c - FirstModifier)
}

func (m ModSet) Union(o ModSet) ModSet     { return m | o }
func (m ModSet) Intersect(o ModSet) ModSet { return m & o }
func (m ModSet) Intersects(o ModSet) bool  { return m&o != 0 }
func (m ModSet) Without(o ModSet) ModSet   { return m &^ o }
func (m ModSet) Complement() ModSet        { return ^m }
func (m ModSet) Has(c KeyCode) bool        { return m&ModOf(c) != 0 && c.IsModifier() }
func (m ModSet) IsEmpty() bool             { return m == 0 }
func (m ModSet) Len() int                  { return bits.OnesCount8(uint8(m)) }

// Each calls fn with the key code of every member, lowest bit first.
func (m ModSet) Each(fn func(KeyCode)) {
	for i := 0; i < 8; i++ {
		if m&(1<<i) != 0 {
			fn(FirstModifier + KeyCode(i))
		}
	}
}

// Names returns member names in bit order.
func (m ModSet) Names() []string {
	names := make([]string, 0, m.Len())
	m.Each(func(c KeyCode) {
		names = append(names, modifierNames[c-FirstModifier])
	})
	return names
}

func (m ModSet) String() string {
	if m == 0 {
		return "none"
	}
	return strings.Join(m.Names(), "|")
}

var modifierNames = [8]string{
	"LeftControl", "LeftShift", "LeftAlt", "LeftGUI",
	"RightControl", "RightShift", "RightAlt", "RightGUI",
}

// ParseModSet builds a set from modifier names accepted by ParseKey
// ("LeftAlt", "LAlt", "RightGUI", ...).
func ParseModSet(names []string) (ModSet, error) {
	var m ModSet
	for _, name := range names {
		code, ok := lookupName(name)
		if !ok || !code.IsModifier() {
			return 0, fmt.Errorf("unknown modifier %q", name)
		}
		m |= ModOf(code)
	}
	return m, nil
}

// FlagsToModSet maps a key's held-modifier flags to the modifiers they imply.
// Control, shift and gui collapse onto their left-hand bits; only alt keeps
// its side.
func FlagsToModSet(f Flags) ModSet {
	var m ModSet
	if f&CtrlHeld != 0 {
		m |= ModLeftControl
	}
	if f&LAltHeld != 0 {
		m |= ModLeftAlt
	}
	if f&RAltHeld != 0 {
		m |= ModRightAlt
	}
	if f&ShiftHeld != 0 {
		m |= ModLeftShift
	}
	if f&GUIHeld != 0 {
		m |= ModLeftGUI
	}
	return m
}
