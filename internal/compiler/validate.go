package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// Validation error codes (E200-E299) and warnings (W200-W299)
const (
	ErrUnsupportedType = "E200" // unsupported or mistyped definition

	ErrInvalidGeometry = "E201" // rows/cols outside 1..MaxDimension
	ErrInvalidLayers   = "E202" // layer list empty, too long, blank or duplicate names
	ErrKeymapShape     = "E203" // keymap grid does not match geometry
	ErrUnknownKey      = "E204" // keymap entry is not a key name
	ErrUnknownLayer    = "E205" // reference to an undeclared layer
	ErrEmptyModifiers  = "E206" // overlay rule with no modifiers (reserved sentinel)
	ErrSelfOverlay     = "E207" // overlay rule shows a layer over itself
	ErrUnknownModifier = "E208" // modifier name is not one of the eight modifiers

	WarnShadowedRule = "W201" // rule overridden by a later rule for the same layers
)

// ValidationError represents a schema validation error or warning.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether e is advisory.
func (e ValidationError) IsWarning() bool { return strings.HasPrefix(e.Code, "W") }

// HasErrors reports whether errs contains anything but warnings.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.IsWarning() {
			return true
		}
	}
	return false
}

// Validate checks a decoded Source or a compiled ir.Config.
// Returns all errors and warnings found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch c := v.(type) {
	case *Source:
		return validateSource(c)
	case *ir.Config:
		return validateConfig(c)
	case ir.Config:
		return validateConfig(&c)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateSource(src *Source) []ValidationError {
	errs := validateGeometry(src.Rows, src.Cols)
	errs = append(errs, validateLayerNames(src.Layers)...)

	declared := make(map[string]bool, len(src.Layers))
	for _, name := range src.Layers {
		declared[name] = true
	}

	names := make([]string, 0, len(src.Keymap))
	for name := range src.Keymap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		km := src.Keymap[name]
		field := "keymap." + name
		if !declared[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("keymap for undeclared layer %q", name),
				Code:    ErrUnknownLayer,
				Line:    km.Line,
			})
			continue
		}
		if len(km.Rows) != src.Rows {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("has %d rows, keyboard has %d", len(km.Rows), src.Rows),
				Code:    ErrKeymapShape,
				Line:    km.Line,
			})
		}
		for r, row := range km.Rows {
			if len(row) != src.Cols {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", field, r),
					Message: fmt.Sprintf("has %d keys, keyboard has %d columns", len(row), src.Cols),
					Code:    ErrKeymapShape,
					Line:    km.Line,
				})
			}
			for c, entry := range row {
				if _, err := keys.ParseKey(entry); err != nil {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("%s[%d][%d]", field, r, c),
						Message: err.Error(),
						Code:    ErrUnknownKey,
						Line:    km.Line,
					})
				}
			}
		}
	}

	pairs := make([]string, len(src.Overlays))
	for i, o := range src.Overlays {
		field := fmt.Sprintf("overlays[%d]", i)
		pairs[i] = o.Original + " -> " + o.Overlay

		for _, ref := range []struct{ field, name string }{
			{field + ".original", o.Original},
			{field + ".overlay", o.Overlay},
		} {
			if !declared[ref.name] {
				errs = append(errs, ValidationError{
					Field:   ref.field,
					Message: fmt.Sprintf("unknown layer %q", ref.name),
					Code:    ErrUnknownLayer,
					Line:    o.Line,
				})
				pairs[i] = ""
			}
		}

		if len(o.Modifiers) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".modifiers",
				Message: "at least one modifier is required (an empty set terminates the table)",
				Code:    ErrEmptyModifiers,
				Line:    o.Line,
			})
		} else if _, err := keys.ParseModSet(o.Modifiers); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".modifiers",
				Message: err.Error(),
				Code:    ErrUnknownModifier,
				Line:    o.Line,
			})
		}

		if o.Original == o.Overlay {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("layer %q cannot overlay itself", o.Original),
				Code:    ErrSelfOverlay,
				Line:    o.Line,
			})
		}
	}

	return append(errs, shadowWarnings(pairs, func(i int) int { return src.Overlays[i].Line })...)
}

func validateConfig(cfg *ir.Config) []ValidationError {
	errs := validateGeometry(int(cfg.Geometry.Rows), int(cfg.Geometry.Cols))
	errs = append(errs, validateLayerNames(cfg.LayerNames)...)

	for l, layer := range cfg.Keymap.Layers {
		if len(layer) != cfg.Geometry.Size() {
			errs = append(errs, ValidationError{
				Field:   "keymap." + cfg.LayerName(ir.LayerID(l)),
				Message: fmt.Sprintf("has %d keys, keyboard has %d", len(layer), cfg.Geometry.Size()),
				Code:    ErrKeymapShape,
			})
		}
	}

	rules := cfg.Overlays.Rules()
	pairs := make([]string, len(rules))
	for i, r := range rules {
		field := fmt.Sprintf("overlays[%d]", i)
		pairs[i] = fmt.Sprintf("%d -> %d", r.Original, r.Overlay)
		for _, id := range []ir.LayerID{r.Original, r.Overlay} {
			if int(id) >= len(cfg.LayerNames) {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("layer %d not declared", id),
					Code:    ErrUnknownLayer,
				})
			}
		}
		if r.Original == r.Overlay {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("layer %q cannot overlay itself", cfg.LayerName(r.Original)),
				Code:    ErrSelfOverlay,
			})
		}
	}

	return append(errs, shadowWarnings(pairs, func(int) int { return 0 })...)
}

func validateGeometry(rows, cols int) []ValidationError {
	if rows < 1 || rows > MaxDimension || cols < 1 || cols > MaxDimension {
		return []ValidationError{{
			Field:   "keyboard",
			Message: fmt.Sprintf("rows and cols must be between 1 and %d, got %dx%d", MaxDimension, rows, cols),
			Code:    ErrInvalidGeometry,
		}}
	}
	return nil
}

func validateLayerNames(names []string) []ValidationError {
	var errs []ValidationError
	if len(names) == 0 || len(names) > ir.MaxLayers {
		errs = append(errs, ValidationError{
			Field:   "layers",
			Message: fmt.Sprintf("between 1 and %d layers are required, got %d", ir.MaxLayers, len(names)),
			Code:    ErrInvalidLayers,
		})
	}
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("layers[%d]", i),
				Message: "layer name must be non-empty",
				Code:    ErrInvalidLayers,
			})
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("layers[%d]", i),
				Message: fmt.Sprintf("duplicate layer name: %q", name),
				Code:    ErrInvalidLayers,
			})
		}
		seen[name] = true
	}
	return errs
}

// shadowWarnings flags rules whose (original, overlay) pair reappears later
// in the table. The overlay scan lets the last matching rule win, so the
// earlier rule's modifiers never apply. Empty pairs are skipped.
func shadowWarnings(pairs []string, line func(int) int) []ValidationError {
	var errs []ValidationError
	for i, p := range pairs {
		if p == "" {
			continue
		}
		for j := i + 1; j < len(pairs); j++ {
			if pairs[j] == p {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("overlays[%d]", i),
					Message: fmt.Sprintf("rule %s is shadowed by overlays[%d]", p, j),
					Code:    WarnShadowedRule,
					Line:    line(i),
				})
				break
			}
		}
	}
	return errs
}
