package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// Keymap spellings for the two special entries.
const (
	TransparentName = "___"
	NoKeyName       = "XXX"
)

var namedCodes = map[string]KeyCode{
	"Enter":      0x28,
	"Escape":     0x29,
	"Esc":        0x29,
	"Backspace":  0x2A,
	"Tab":        0x2B,
	"Space":      0x2C,
	"Minus":      0x2D,
	"Equals":     0x2E,
	"LeftBrace":  0x2F,
	"RightBrace": 0x30,
	"Backslash":  0x31,
	"Semicolon":  0x33,
	"Quote":      0x34,
	"Backtick":   0x35,
	"Comma":      0x36,
	"Period":     0x37,
	"Slash":      0x38,
	"CapsLock":   0x39,
	"Insert":     0x49,
	"Home":       0x4A,
	"PageUp":     0x4B,
	"Delete":     0x4C,
	"End":        0x4D,
	"PageDown":   0x4E,
	"Right":      0x4F,
	"Left":       0x50,
	"Down":       0x51,
	"Up":         0x52,

	"LeftControl":  LeftControl,
	"LCtrl":        LeftControl,
	"LeftShift":    LeftShift,
	"LShift":       LeftShift,
	"LeftAlt":      LeftAlt,
	"LAlt":         LeftAlt,
	"LeftGUI":      LeftGUI,
	"LGui":         LeftGUI,
	"RightControl": RightControl,
	"RCtrl":        RightControl,
	"RightShift":   RightShift,
	"RShift":       RightShift,
	"RightAlt":     RightAlt,
	"RAlt":         RightAlt,
	"AltGr":        RightAlt,
	"RightGUI":     RightGUI,
	"RGui":         RightGUI,
}

// canonicalNames is the reverse of namedCodes using the first spelling.
var canonicalNames = map[KeyCode]string{}

func init() {
	for i := 0; i < 26; i++ {
		namedCodes[string(rune('A'+i))] = KeyCode(0x04 + i)
	}
	for i := 1; i <= 9; i++ {
		namedCodes[strconv.Itoa(i)] = KeyCode(0x1E + i - 1)
	}
	namedCodes["0"] = 0x27
	for i := 1; i <= 12; i++ {
		namedCodes["F"+strconv.Itoa(i)] = KeyCode(0x3A + i - 1)
	}

	preferred := []string{"Escape", "LeftControl", "LeftShift", "LeftAlt", "LeftGUI",
		"RightControl", "RightShift", "RightAlt", "RightGUI"}
	for _, name := range preferred {
		canonicalNames[namedCodes[name]] = name
	}
	for name, code := range namedCodes {
		if _, ok := canonicalNames[code]; !ok {
			canonicalNames[code] = name
		}
	}
}

// flagPrefixes are checked longest first so "RA-" wins over "A-".
var flagPrefixes = []struct {
	prefix string
	flag   Flags
}{
	{"RA-", RAltHeld},
	{"C-", CtrlHeld},
	{"A-", LAltHeld},
	{"S-", ShiftHeld},
	{"G-", GUIHeld},
}

func lookupName(name string) (KeyCode, bool) {
	code, ok := namedCodes[name]
	return code, ok
}

// ParseKey parses a keymap entry.
//
// Grammar:
//
//	___            transparent
//	XXX            no key
//	Synth(n)       synthetic key with code n
//	0xNN           raw usage code
//	[prefix-]Name  named usage with held-modifier flags, e.g. "C-S-Left"
//
// Prefixes: C- ctrl, A- left alt, RA- right alt, S- shift, G- gui.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return NoKey, fmt.Errorf("empty key name")
	case TransparentName:
		return Transparent, nil
	case NoKeyName:
		return NoKey, nil
	}

	if strings.HasPrefix(s, "Synth(") && strings.HasSuffix(s, ")") {
		n, err := strconv.ParseUint(s[len("Synth("):len(s)-1], 0, 8)
		if err != nil {
			return NoKey, fmt.Errorf("invalid synthetic key %q: %w", s, err)
		}
		return Key{Code: KeyCode(n), Flags: Synthetic}, nil
	}

	var flags Flags
	rest := s
	for {
		matched := false
		for _, p := range flagPrefixes {
			if strings.HasPrefix(rest, p.prefix) && len(rest) > len(p.prefix) {
				flags |= p.flag
				rest = rest[len(p.prefix):]
				matched = true
				break
			}
		}
		if !matched {
			break
		}
	}

	if strings.HasPrefix(rest, "0x") {
		n, err := strconv.ParseUint(rest, 0, 8)
		if err != nil {
			return NoKey, fmt.Errorf("invalid key code %q: %w", s, err)
		}
		return Key{Code: KeyCode(n), Flags: flags}, nil
	}

	code, ok := lookupName(rest)
	if !ok {
		return NoKey, fmt.Errorf("unknown key name %q", s)
	}
	return Key{Code: code, Flags: flags}, nil
}

// MustParseKey is ParseKey for tests and static tables.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// String renders k in the ParseKey grammar.
func (k Key) String() string {
	switch {
	case k.IsTransparent():
		return TransparentName
	case k == NoKey:
		return NoKeyName
	case k.Flags&Synthetic != 0:
		return fmt.Sprintf("Synth(%d)", k.Code)
	}

	var b strings.Builder
	if k.Flags&CtrlHeld != 0 {
		b.WriteString("C-")
	}
	if k.Flags&LAltHeld != 0 {
		b.WriteString("A-")
	}
	if k.Flags&RAltHeld != 0 {
		b.WriteString("RA-")
	}
	if k.Flags&ShiftHeld != 0 {
		b.WriteString("S-")
	}
	if k.Flags&GUIHeld != 0 {
		b.WriteString("G-")
	}
	if name, ok := canonicalNames[k.Code]; ok {
		b.WriteString(name)
	} else {
		fmt.Fprintf(&b, "0x%02X", uint8(k.Code))
	}
	return b.String()
}
