package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// MaxDimension bounds rows and columns of a keyboard matrix.
const MaxDimension = 64

// Source is a keyboard definition as written in CUE, before key and layer
// names are resolved.
type Source struct {
	Rows     int
	Cols     int
	Layers   []string
	Keymap   map[string]KeymapSource
	Overlays []OverlaySource
}

// KeymapSource is one layer's key grid.
type KeymapSource struct {
	Rows [][]string
	Line int
}

// OverlaySource is one overlay rule with layers and modifiers by name.
type OverlaySource struct {
	Original  string
	Overlay   string
	Modifiers []string
	Line      int
}

// CompileConfig parses a CUE keyboard definition into an ir.Config.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of the definition:
//
//	keyboard: { rows: 2, cols: 4 }
//	layers: ["base", "alt"]
//	keymap: { base: [[...], [...]] }
//	overlays: [{ original: "base", overlay: "alt", modifiers: ["LeftAlt"] }]
//
// Warnings from Validate do not fail compilation.
func CompileConfig(v cue.Value) (*ir.Config, error) {
	src, err := Decode(v)
	if err != nil {
		return nil, err
	}
	for _, ve := range Validate(src) {
		if !ve.IsWarning() {
			return nil, ve
		}
	}
	return Build(src)
}

// Decode extracts the definition's structure. Type and presence errors are
// returned as CompileError with the CUE position.
func Decode(v cue.Value) (*Source, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	src := &Source{Keymap: make(map[string]KeymapSource)}

	kb := v.LookupPath(cue.ParsePath("keyboard"))
	if !kb.Exists() {
		return nil, &CompileError{
			Field:   "keyboard",
			Message: "keyboard is required",
			Pos:     v.Pos(),
		}
	}
	var err error
	if src.Rows, err = requireInt(kb, "rows", "keyboard.rows"); err != nil {
		return nil, err
	}
	if src.Cols, err = requireInt(kb, "cols", "keyboard.cols"); err != nil {
		return nil, err
	}

	layersVal := v.LookupPath(cue.ParsePath("layers"))
	if !layersVal.Exists() {
		return nil, &CompileError{
			Field:   "layers",
			Message: "layers is required",
			Pos:     v.Pos(),
		}
	}
	if src.Layers, err = decodeStrings(layersVal, "layers"); err != nil {
		return nil, err
	}

	// keymap is optional: missing layers are transparent
	keymapVal := v.LookupPath(cue.ParsePath("keymap"))
	if keymapVal.Exists() {
		iter, err := keymapVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			grid, err := decodeGrid(iter.Value(), "keymap."+iter.Label())
			if err != nil {
				return nil, err
			}
			src.Keymap[iter.Label()] = KeymapSource{Rows: grid, Line: lineOf(iter.Value().Pos())}
		}
	}

	overlaysVal := v.LookupPath(cue.ParsePath("overlays"))
	if overlaysVal.Exists() {
		iter, err := overlaysVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			rule, err := decodeOverlay(iter.Value(), fmt.Sprintf("overlays[%d]", i))
			if err != nil {
				return nil, err
			}
			src.Overlays = append(src.Overlays, rule)
		}
	}

	return src, nil
}

func decodeOverlay(v cue.Value, field string) (OverlaySource, error) {
	rule := OverlaySource{Line: lineOf(v.Pos())}
	var err error
	if rule.Original, err = requireString(v, "original", field+".original"); err != nil {
		return rule, err
	}
	if rule.Overlay, err = requireString(v, "overlay", field+".overlay"); err != nil {
		return rule, err
	}
	mods := v.LookupPath(cue.ParsePath("modifiers"))
	if !mods.Exists() {
		return rule, &CompileError{
			Field:   field + ".modifiers",
			Message: "modifiers is required",
			Pos:     v.Pos(),
		}
	}
	rule.Modifiers, err = decodeStrings(mods, field+".modifiers")
	return rule, err
}

// decodeGrid reads a list of rows, each a list of key names.
func decodeGrid(v cue.Value, field string) ([][]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a list of rows",
			Pos:     v.Pos(),
		}
	}
	var grid [][]string
	for r := 0; iter.Next(); r++ {
		row, err := decodeStrings(iter.Value(), fmt.Sprintf("%s[%d]", field, r))
		if err != nil {
			return nil, err
		}
		grid = append(grid, row)
	}
	return grid, nil
}

func decodeStrings(v cue.Value, field string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a list of strings",
			Pos:     v.Pos(),
		}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("must be a list of strings, got %v", iter.Value().IncompleteKind()),
				Pos:     iter.Value().Pos(),
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func requireString(v cue.Value, path, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := val.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: val.Pos()}
	}
	return s, nil
}

// requireInt reads an integer field. Floats are rejected explicitly so that
// "rows: 2.0" gets a clear message.
func requireInt(v cue.Value, path, field string) (int, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return 0, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	switch val.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{Field: field, Message: "must be an integer, not a float", Pos: val.Pos()}
	default:
		return 0, &CompileError{Field: field, Message: fmt.Sprintf("must be an integer, got %v", val.IncompleteKind()), Pos: val.Pos()}
	}
	n, err := val.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// Build resolves a decoded definition into an ir.Config. The overlay table is
// sentinel-terminated. Build assumes Validate found no errors but still
// fails cleanly on unresolvable names.
func Build(src *Source) (*ir.Config, error) {
	if src.Rows < 1 || src.Rows > MaxDimension || src.Cols < 1 || src.Cols > MaxDimension {
		return nil, &CompileError{Field: "keyboard", Message: fmt.Sprintf("invalid geometry %dx%d", src.Rows, src.Cols)}
	}
	g := keys.Geometry{Rows: uint8(src.Rows), Cols: uint8(src.Cols)}
	cfg := &ir.Config{
		Geometry:   g,
		LayerNames: append([]string(nil), src.Layers...),
		Keymap:     ir.NewKeymap(g, len(src.Layers)),
	}

	for id, name := range src.Layers {
		km, ok := src.Keymap[name]
		if !ok {
			continue
		}
		for r, row := range km.Rows {
			for c, entry := range row {
				addr := keys.Addr(uint8(r), uint8(c))
				if !g.Contains(addr) {
					return nil, &CompileError{Field: "keymap." + name, Message: fmt.Sprintf("entry %s outside %dx%d matrix", addr, g.Rows, g.Cols)}
				}
				k, err := keys.ParseKey(entry)
				if err != nil {
					return nil, &CompileError{Field: fmt.Sprintf("keymap.%s[%d][%d]", name, r, c), Message: err.Error()}
				}
				cfg.Keymap.Set(ir.LayerID(id), addr, k)
			}
		}
	}

	table := make(ir.OverlayTable, 0, len(src.Overlays)+1)
	for i, o := range src.Overlays {
		field := fmt.Sprintf("overlays[%d]", i)
		original, err := cfg.LayerID(o.Original)
		if err != nil {
			return nil, &CompileError{Field: field + ".original", Message: err.Error()}
		}
		overlay, err := cfg.LayerID(o.Overlay)
		if err != nil {
			return nil, &CompileError{Field: field + ".overlay", Message: err.Error()}
		}
		mask, err := keys.ParseModSet(o.Modifiers)
		if err != nil {
			return nil, &CompileError{Field: field + ".modifiers", Message: err.Error()}
		}
		if mask.IsEmpty() {
			return nil, &CompileError{Field: field + ".modifiers", Message: "empty modifier set is reserved for the table sentinel"}
		}
		table = append(table, ir.OverlayRule{Original: original, Overlay: overlay, Mask: mask})
	}
	cfg.Overlays = table.Terminated()

	return cfg, nil
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
