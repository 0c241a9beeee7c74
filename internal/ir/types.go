package ir

import (
	"fmt"

	"github.com/roach88/modlayers/internal/keys"
)

// LayerID indexes a keymap layer.
type LayerID uint8

// MaxLayers bounds the layer stack (one bit per layer in a uint32).
const MaxLayers = 32

// OverlayRule shows Overlay on top of Original while any modifier in Mask is
// pressed directly. A zero Mask is the table sentinel.
type OverlayRule struct {
	Original LayerID     `json:"original"`
	Overlay  LayerID     `json:"overlay"`
	Mask     keys.ModSet `json:"mask"`
}

// IsSentinel reports whether r terminates a table.
func (r OverlayRule) IsSentinel() bool { return r.Mask == 0 }

// OverlayTable is an ordered rule list. Scans stop at the first sentinel or at
// the end of the slice, whichever comes first.
type OverlayTable []OverlayRule

// Len returns the number of rules before the sentinel.
func (t OverlayTable) Len() int {
	for i, r := range t {
		if r.IsSentinel() {
			return i
		}
	}
	return len(t)
}

// Rules returns the live rules, excluding the sentinel and anything after it.
func (t OverlayTable) Rules() []OverlayRule { return t[:t.Len()] }

// Terminated returns a copy of the live rules followed by a sentinel.
func (t OverlayTable) Terminated() OverlayTable {
	n := t.Len()
	out := make(OverlayTable, n+1)
	copy(out, t[:n])
	return out
}

// Keymap holds one key per matrix address per layer.
type Keymap struct {
	Geometry keys.Geometry
	Layers   [][]keys.Key // [layer][row-major index]
}

// NewKeymap allocates a keymap of n layers filled with Transparent.
// Layer 0 is filled with NoKey so lookups always terminate.
func NewKeymap(g keys.Geometry, n int) Keymap {
	km := Keymap{Geometry: g, Layers: make([][]keys.Key, n)}
	for l := range km.Layers {
		fill := keys.Transparent
		if l == 0 {
			fill = keys.NoKey
		}
		layer := make([]keys.Key, g.Size())
		for i := range layer {
			layer[i] = fill
		}
		km.Layers[l] = layer
	}
	return km
}

// At returns the key for addr on layer, or Transparent when either is out of
// range.
func (km Keymap) At(layer LayerID, addr keys.KeyAddr) keys.Key {
	if int(layer) >= len(km.Layers) || !km.Geometry.Contains(addr) {
		return keys.Transparent
	}
	return km.Layers[layer][km.Geometry.Index(addr)]
}

// Set stores k at addr on layer.
func (km Keymap) Set(layer LayerID, addr keys.KeyAddr, k keys.Key) {
	km.Layers[layer][km.Geometry.Index(addr)] = k
}

// Config is a compiled keyboard definition.
type Config struct {
	Geometry   keys.Geometry
	LayerNames []string
	Keymap     Keymap
	Overlays   OverlayTable
}

// LayerID resolves a layer name.
func (c *Config) LayerID(name string) (LayerID, error) {
	for i, n := range c.LayerNames {
		if n == name {
			return LayerID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layer %q", name)
}

// LayerName returns the configured name of id, or its number.
func (c *Config) LayerName(id LayerID) string {
	if int(id) < len(c.LayerNames) {
		return c.LayerNames[id]
	}
	return fmt.Sprintf("%d", id)
}

// ToCanonicalMap renders the config for hashing and the compile command. The
// result has the same shape as the source definition, so its JSON encoding
// compiles back to an equal Config.
func (c *Config) ToCanonicalMap() map[string]any {
	overlays := make([]any, 0, c.Overlays.Len())
	for _, r := range c.Overlays.Rules() {
		overlays = append(overlays, map[string]any{
			"original":  c.LayerName(r.Original),
			"overlay":   c.LayerName(r.Overlay),
			"modifiers": r.Mask.Names(),
		})
	}

	keymap := map[string]any{}
	cols := int(c.Geometry.Cols)
	for l, layer := range c.Keymap.Layers {
		var rows []any
		for start := 0; cols > 0 && start < len(layer); start += cols {
			end := min(start+cols, len(layer))
			row := make([]any, 0, cols)
			for _, k := range layer[start:end] {
				row = append(row, k.String())
			}
			rows = append(rows, row)
		}
		if rows == nil {
			rows = []any{}
		}
		keymap[c.LayerName(LayerID(l))] = rows
	}

	return map[string]any{
		"keyboard": map[string]any{
			"rows": int(c.Geometry.Rows),
			"cols": int(c.Geometry.Cols),
		},
		"layers":   c.LayerNames,
		"keymap":   keymap,
		"overlays": overlays,
	}
}
