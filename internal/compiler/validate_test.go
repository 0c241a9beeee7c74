package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

func validSource() *Source {
	return &Source{
		Rows:   1,
		Cols:   2,
		Layers: []string{"base", "alt"},
		Keymap: map[string]KeymapSource{
			"base": {Rows: [][]string{{"Q", "LeftAlt"}}},
			"alt":  {Rows: [][]string{{"Home", "___"}}},
		},
		Overlays: []OverlaySource{
			{Original: "base", Overlay: "alt", Modifiers: []string{"LeftAlt"}},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateSourceValid(t *testing.T) {
	errs := Validate(validSource())
	assert.Empty(t, errs, "valid source should have no errors")
}

func TestValidateSourceGeometry(t *testing.T) {
	src := validSource()
	src.Rows = 0
	src.Keymap = nil
	assert.Equal(t, []string{ErrInvalidGeometry}, codes(Validate(src)))

	src.Rows = MaxDimension + 1
	assert.Equal(t, []string{ErrInvalidGeometry}, codes(Validate(src)))
}

func TestValidateSourceLayers(t *testing.T) {
	src := validSource()
	src.Layers = []string{"base", "alt", "alt", " "}
	errs := Validate(src)
	assert.Equal(t, []string{ErrInvalidLayers, ErrInvalidLayers}, codes(errs))
	assert.Equal(t, "layers[2]", errs[0].Field)
	assert.Contains(t, errs[0].Message, "duplicate")
	assert.Equal(t, "layers[3]", errs[1].Field)

	src = validSource()
	src.Keymap = nil
	src.Overlays = nil
	src.Layers = nil
	assert.Equal(t, []string{ErrInvalidLayers}, codes(Validate(src)))

	src.Layers = make([]string, ir.MaxLayers+1)
	for i := range src.Layers {
		src.Layers[i] = string(rune('a' + i%26)) + string(rune('a'+i/26))
	}
	assert.Equal(t, []string{ErrInvalidLayers}, codes(Validate(src)))
}

func TestValidateSourceKeymapShape(t *testing.T) {
	src := validSource()
	src.Keymap["alt"] = KeymapSource{Rows: [][]string{{"Home"}, {"End", "Up"}}, Line: 7}

	errs := Validate(src)
	assert.Equal(t, []string{ErrKeymapShape, ErrKeymapShape}, codes(errs))
	assert.Equal(t, "keymap.alt", errs[0].Field)
	assert.Equal(t, "keymap.alt[0]", errs[1].Field)
	assert.Equal(t, 7, errs[0].Line)
}

func TestValidateSourceUnknownKey(t *testing.T) {
	src := validSource()
	src.Keymap["base"] = KeymapSource{Rows: [][]string{{"Q", "Meta"}}}

	errs := Validate(src)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnknownKey, errs[0].Code)
	assert.Contains(t, errs[0].Message, "Meta")
}

func TestValidateSourceUnknownLayers(t *testing.T) {
	src := validSource()
	src.Keymap["fn"] = KeymapSource{Rows: [][]string{{"F1", "F2"}}}
	src.Overlays = append(src.Overlays, OverlaySource{Original: "fn", Overlay: "alt", Modifiers: []string{"LeftGUI"}})

	errs := Validate(src)
	assert.Equal(t, []string{ErrUnknownLayer, ErrUnknownLayer}, codes(errs))
	assert.Equal(t, "keymap.fn", errs[0].Field)
	assert.Equal(t, "overlays[1].original", errs[1].Field)
}

func TestValidateSourceOverlayRules(t *testing.T) {
	src := validSource()
	src.Overlays = []OverlaySource{
		{Original: "base", Overlay: "alt", Modifiers: nil},
		{Original: "alt", Overlay: "alt", Modifiers: []string{"LeftAlt"}},
		{Original: "base", Overlay: "alt", Modifiers: []string{"Hyper"}},
	}

	errs := Validate(src)
	assert.Equal(t, []string{ErrEmptyModifiers, ErrSelfOverlay, ErrUnknownModifier, WarnShadowedRule}, codes(errs))
	assert.True(t, HasErrors(errs))
}

func TestValidateSourceShadowedRules(t *testing.T) {
	src := validSource()
	src.Overlays = []OverlaySource{
		{Original: "base", Overlay: "alt", Modifiers: []string{"LeftAlt"}, Line: 3},
		{Original: "base", Overlay: "alt", Modifiers: []string{"LeftGUI"}, Line: 4},
		{Original: "base", Overlay: "alt", Modifiers: []string{"RightAlt"}, Line: 5},
	}

	errs := Validate(src)
	require.Len(t, errs, 2)
	assert.Equal(t, "overlays[0]", errs[0].Field)
	assert.Contains(t, errs[0].Message, "shadowed by overlays[1]")
	assert.Equal(t, 3, errs[0].Line)
	assert.Equal(t, "overlays[1]", errs[1].Field)
	assert.True(t, errs[1].IsWarning())
}

func TestValidateConfig(t *testing.T) {
	g := keys.Geometry{Rows: 1, Cols: 2}
	cfg := &ir.Config{
		Geometry:   g,
		LayerNames: []string{"base", "alt"},
		Keymap:     ir.NewKeymap(g, 2),
		Overlays:   ir.OverlayTable{{Original: 0, Overlay: 1, Mask: keys.ModLeftAlt}, {}},
	}
	assert.Empty(t, Validate(cfg))
	assert.Empty(t, Validate(*cfg))

	cfg.Overlays = ir.OverlayTable{
		{Original: 0, Overlay: 5, Mask: keys.ModLeftAlt},
		{Original: 1, Overlay: 1, Mask: keys.ModLeftAlt},
		{Original: 1, Overlay: 1, Mask: keys.ModLeftGUI},
	}
	assert.Equal(t, []string{ErrUnknownLayer, ErrSelfOverlay, ErrSelfOverlay, WarnShadowedRule}, codes(Validate(cfg)))

	cfg.Overlays = nil
	cfg.Keymap.Layers[1] = cfg.Keymap.Layers[1][:1]
	assert.Equal(t, []string{ErrKeymapShape}, codes(Validate(cfg)))
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("not a config")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedType, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "layers[1]", Message: "duplicate layer name: \"alt\"", Code: ErrInvalidLayers}
	assert.Equal(t, `[E202] layers[1]: duplicate layer name: "alt"`, err.Error())
}

func TestValidationErrorFormatWithLine(t *testing.T) {
	err := ValidationError{Field: "overlays[0]", Message: "shadowed", Code: WarnShadowedRule, Line: 42}
	assert.Equal(t, "[W201] line 42: overlays[0]: shadowed", err.Error())
	assert.True(t, err.IsWarning())
}
