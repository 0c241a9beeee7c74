package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyCode is a HID keyboard usage ID (usage page 0x07).
type KeyCode uint8

// HID modifier usages. The range FirstModifier..LastModifier is contiguous.
const (
	LeftControl  KeyCode = 0xE0
	LeftShift    KeyCode = 0xE1
	LeftAlt      KeyCode = 0xE2
	LeftGUI      KeyCode = 0xE3
	RightControl KeyCode = 0xE4
	RightShift   KeyCode = 0xE5
	RightAlt     KeyCode = 0xE6
	RightGUI     KeyCode = 0xE7

	FirstModifier = LeftControl
	LastModifier  = RightGUI
)

// IsModifier reports whether c falls in the HID modifier range.
func (c KeyCode) IsModifier() bool {
	return c >= FirstModifier && c <= LastModifier
}

// Flags annotate a Key with modifiers it implies and with markers for keys
// that do not produce a plain HID usage.
type Flags uint8

const (
	CtrlHeld  Flags = 0x01
	LAltHeld  Flags = 0x02
	RAltHeld  Flags = 0x04
	ShiftHeld Flags = 0x08
	GUIHeld   Flags = 0x10

	// Synthetic marks keys handled by plugins (layer shifts, macros, ...).
	Synthetic Flags = 0x40
	Reserved  Flags = 0x80

	// ModifierFlags is the union of the flags that imply a held modifier.
	ModifierFlags = CtrlHeld | LAltHeld | RAltHeld | ShiftHeld | GUIHeld
)

// Key is a resolved keymap entry: a usage code plus flags.
type Key struct {
	Code  KeyCode
	Flags Flags
}

var (
	// NoKey produces nothing and blocks lower layers.
	NoKey = Key{}

	// Transparent defers to the next lower active layer.
	Transparent = Key{Code: 0xFF, Flags: 0xFF}
)

// IsTransparent reports whether k is the transparent marker.
func (k Key) IsTransparent() bool { return k == Transparent }

// IsSynthetic reports whether k carries the Synthetic flag.
func (k Key) IsSynthetic() bool { return k.Flags&Synthetic != 0 && !k.IsTransparent() }

// IsBareModifier reports whether k is a modifier key with no flags at all,
// i.e. a physical modifier pressed as itself.
func (k Key) IsBareModifier() bool { return k.Flags == 0 && k.Code.IsModifier() }

// KeyAddr identifies a physical switch by matrix row and column.
type KeyAddr struct {
	Row uint8
	Col uint8
}

// Addr is shorthand for KeyAddr{Row: row, Col: col}.
func Addr(row, col uint8) KeyAddr { return KeyAddr{Row: row, Col: col} }

func (a KeyAddr) String() string { return fmt.Sprintf("%d,%d", a.Row, a.Col) }

// ParseAddr parses the "row,col" form produced by String.
func ParseAddr(s string) (KeyAddr, error) {
	row, col, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return KeyAddr{}, fmt.Errorf("invalid key address %q: want \"row,col\"", s)
	}
	r, err := strconv.ParseUint(strings.TrimSpace(row), 10, 8)
	if err != nil {
		return KeyAddr{}, fmt.Errorf("invalid key address %q: bad row", s)
	}
	c, err := strconv.ParseUint(strings.TrimSpace(col), 10, 8)
	if err != nil {
		return KeyAddr{}, fmt.Errorf("invalid key address %q: bad column", s)
	}
	return KeyAddr{Row: uint8(r), Col: uint8(c)}, nil
}

// Geometry is the fixed matrix size of a device.
type Geometry struct {
	Rows uint8
	Cols uint8
}

// Size returns the number of addressable switches.
func (g Geometry) Size() int { return int(g.Rows) * int(g.Cols) }

// Contains reports whether addr lies inside the matrix.
func (g Geometry) Contains(addr KeyAddr) bool {
	return addr.Row < g.Rows && addr.Col < g.Cols
}

// Index returns the row-major offset of addr. The caller must check Contains.
func (g Geometry) Index(addr KeyAddr) int {
	return int(addr.Row)*int(g.Cols) + int(addr.Col)
}

// Each calls fn for every address in row-major scan order.
func (g Geometry) Each(fn func(KeyAddr)) {
	for r := uint8(0); r < g.Rows; r++ {
		for c := uint8(0); c < g.Cols; c++ {
			fn(KeyAddr{Row: r, Col: c})
		}
	}
}
