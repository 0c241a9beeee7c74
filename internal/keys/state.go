package keys

import "fmt"

// KeyState describes a switch transition for one scan cycle.
type KeyState uint8

const (
	IsPressed  KeyState = 0x01
	WasPressed KeyState = 0x02
	Injected   KeyState = 0x80
)

// The four transition kinds a scan can produce.
const (
	StateIdle       KeyState = 0
	StateToggledOn  KeyState = IsPressed
	StateHeld       KeyState = IsPressed | WasPressed
	StateToggledOff KeyState = WasPressed
)

func (s KeyState) Pressed() bool    { return s&IsPressed != 0 }
func (s KeyState) WasPressed() bool { return s&WasPressed != 0 }
func (s KeyState) IsInjected() bool { return s&Injected != 0 }

// Idle reports a key that is neither pressed now nor was pressed last cycle.
func (s KeyState) Idle() bool { return !s.Pressed() && !s.WasPressed() }

// ToggledOn reports the released → pressed transition.
func (s KeyState) ToggledOn() bool { return s.Pressed() && !s.WasPressed() }

// ToggledOff reports the pressed → released transition.
func (s KeyState) ToggledOff() bool { return !s.Pressed() && s.WasPressed() }

// Transition derives the state from the previous and current pressed bits.
func Transition(was, is bool) KeyState {
	var s KeyState
	if is {
		s |= IsPressed
	}
	if was {
		s |= WasPressed
	}
	return s
}

func (s KeyState) String() string {
	var name string
	switch s &^ Injected {
	case StateIdle:
		name = "idle"
	case StateToggledOn:
		name = "toggled_on"
	case StateHeld:
		name = "held"
	case StateToggledOff:
		name = "toggled_off"
	default:
		name = fmt.Sprintf("state(0x%02x)", uint8(s))
	}
	if s.IsInjected() {
		return name + "+injected"
	}
	return name
}
