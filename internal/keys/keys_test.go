package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsToModSet(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  ModSet
	}{
		{"none", 0, ModNone},
		{"ctrl", CtrlHeld, ModLeftControl},
		{"left alt", LAltHeld, ModLeftAlt},
		{"right alt keeps its side", RAltHeld, ModRightAlt},
		{"shift", ShiftHeld, ModLeftShift},
		{"gui", GUIHeld, ModLeftGUI},
		{"synthetic ignored", Synthetic, ModNone},
		{"combined", CtrlHeld | ShiftHeld | GUIHeld, ModLeftControl | ModLeftShift | ModLeftGUI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlagsToModSet(tt.flags))
		})
	}
}

func TestFlagsToModSet_RightSideCollapses(t *testing.T) {
	// No flag can express RightShift, RightControl or RightGUI.
	all := FlagsToModSet(ModifierFlags)
	assert.False(t, all.Has(RightShift))
	assert.False(t, all.Has(RightControl))
	assert.False(t, all.Has(RightGUI))
	assert.True(t, all.Has(RightAlt))
}

func TestModOf(t *testing.T) {
	assert.Equal(t, ModLeftControl, ModOf(LeftControl))
	assert.Equal(t, ModRightGUI, ModOf(RightGUI))
	assert.Equal(t, ModNone, ModOf(0x04))
	assert.Equal(t, ModSet(0x04), ModOf(LeftAlt))
}

func TestModSet_Operations(t *testing.T) {
	m := ModLeftAlt.Union(ModLeftShift)

	assert.True(t, m.Has(LeftAlt))
	assert.False(t, m.Has(LeftControl))
	assert.False(t, m.Has(0x04))
	assert.True(t, m.Intersects(ModLeftShift))
	assert.False(t, m.Intersects(ModRightAlt))
	assert.Equal(t, ModLeftShift, m.Without(ModLeftAlt))
	assert.Equal(t, ModLeftAlt, m.Intersect(ModLeftAlt|ModLeftGUI))
	assert.Equal(t, 2, m.Len())
	assert.False(t, m.Complement().Intersects(m))
	assert.True(t, ModNone.IsEmpty())
	assert.Equal(t, "LeftShift|LeftAlt", m.String())
	assert.Equal(t, "none", ModNone.String())
}

func TestModSet_EachOrder(t *testing.T) {
	var got []KeyCode
	(ModRightGUI | ModLeftControl | ModLeftAlt).Each(func(c KeyCode) {
		got = append(got, c)
	})
	assert.Equal(t, []KeyCode{LeftControl, LeftAlt, RightGUI}, got)
}

func TestParseModSet(t *testing.T) {
	m, err := ParseModSet([]string{"LeftAlt", "RShift"})
	require.NoError(t, err)
	assert.Equal(t, ModLeftAlt|ModRightShift, m)

	_, err = ParseModSet([]string{"A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown modifier")
}

func TestKeyState_Transitions(t *testing.T) {
	assert.True(t, Transition(false, false).Idle())
	assert.True(t, Transition(false, true).ToggledOn())
	assert.True(t, Transition(true, false).ToggledOff())

	held := Transition(true, true)
	assert.Equal(t, StateHeld, held)
	assert.True(t, held.Pressed())
	assert.False(t, held.ToggledOn())
	assert.False(t, held.ToggledOff())

	inj := StateToggledOn | Injected
	assert.True(t, inj.IsInjected())
	assert.True(t, inj.ToggledOn())
	assert.Equal(t, "toggled_on+injected", inj.String())
	assert.Equal(t, "held", StateHeld.String())
}

func TestGeometry(t *testing.T) {
	g := Geometry{Rows: 2, Cols: 3}
	assert.Equal(t, 6, g.Size())
	assert.True(t, g.Contains(Addr(1, 2)))
	assert.False(t, g.Contains(Addr(2, 0)))
	assert.False(t, g.Contains(Addr(0, 3)))
	assert.Equal(t, 5, g.Index(Addr(1, 2)))

	var order []KeyAddr
	g.Each(func(a KeyAddr) { order = append(order, a) })
	require.Len(t, order, 6)
	assert.Equal(t, Addr(0, 0), order[0])
	assert.Equal(t, Addr(0, 2), order[2])
	assert.Equal(t, Addr(1, 0), order[3])
}

func TestKey_Predicates(t *testing.T) {
	assert.True(t, Key{Code: LeftShift}.IsBareModifier())
	assert.False(t, Key{Code: LeftShift, Flags: CtrlHeld}.IsBareModifier())
	assert.False(t, Key{Code: 0x04}.IsBareModifier())
	assert.True(t, Key{Code: 1, Flags: Synthetic}.IsSynthetic())
	assert.False(t, Transparent.IsSynthetic())
	assert.True(t, Transparent.IsTransparent())
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"A", Key{Code: 0x04}},
		{"Z", Key{Code: 0x1D}},
		{"1", Key{Code: 0x1E}},
		{"0", Key{Code: 0x27}},
		{"F12", Key{Code: 0x45}},
		{"Left", Key{Code: 0x50}},
		{"LeftAlt", Key{Code: LeftAlt}},
		{"AltGr", Key{Code: RightAlt}},
		{"C-Left", Key{Code: 0x50, Flags: CtrlHeld}},
		{"C-S-Left", Key{Code: 0x50, Flags: CtrlHeld | ShiftHeld}},
		{"RA-Q", Key{Code: 0x14, Flags: RAltHeld}},
		{"A-A", Key{Code: 0x04, Flags: LAltHeld}},
		{"S", Key{Code: 0x16}},
		{"0x2C", Key{Code: 0x2C}},
		{"Synth(3)", Key{Code: 3, Flags: Synthetic}},
		{"___", Transparent},
		{"XXX", NoKey},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKey_Errors(t *testing.T) {
	for _, in := range []string{"", "Bogus", "C-", "Synth(x)", "0x1FF"} {
		_, err := ParseKey(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestKey_StringRoundTrip(t *testing.T) {
	for _, in := range []string{"A", "C-S-Left", "RA-Q", "G-Space", "Escape", "LeftControl", "Synth(7)", "___", "XXX"} {
		k := MustParseKey(in)
		assert.Equal(t, in, k.String())
		back, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
}

func TestParseAddr(t *testing.T) {
	a, err := ParseAddr("3,12")
	require.NoError(t, err)
	assert.Equal(t, Addr(3, 12), a)

	a, err = ParseAddr(" 0 , 1 ")
	require.NoError(t, err)
	assert.Equal(t, Addr(0, 1), a)

	back, err := ParseAddr(Addr(7, 2).String())
	require.NoError(t, err)
	assert.Equal(t, Addr(7, 2), back)

	for _, in := range []string{"", "1", "1;2", "x,1", "1,256", "-1,0"} {
		_, err := ParseAddr(in)
		assert.Error(t, err, "input %q", in)
	}
}
