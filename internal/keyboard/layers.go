package keyboard

import (
	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// LayerStack tracks which layers are active and which layer supplies each
// held key. Layer 0 is always active.
//
// The layer serving an address is latched when the key goes down, so a key
// held across an overlay toggle keeps resolving to the layer it was pressed
// on.
type LayerStack struct {
	keymap ir.Keymap
	active uint32
	live   []ir.LayerID
}

// NewLayerStack creates a stack over km with only layer 0 active.
func NewLayerStack(km ir.Keymap) *LayerStack {
	return &LayerStack{
		keymap: km,
		active: 1,
		live:   make([]ir.LayerID, km.Geometry.Size()),
	}
}

// Latch resolves addr against the currently active layers and caches the
// result until the next Latch.
func (s *LayerStack) Latch(addr keys.KeyAddr) {
	if s.keymap.Geometry.Contains(addr) {
		s.live[s.keymap.Geometry.Index(addr)] = s.top(addr)
	}
}

// LookupActiveLayer returns the layer latched for addr. Addresses outside
// the matrix resolve against the live stack.
func (s *LayerStack) LookupActiveLayer(addr keys.KeyAddr) ir.LayerID {
	if !s.keymap.Geometry.Contains(addr) {
		return s.top(addr)
	}
	return s.live[s.keymap.Geometry.Index(addr)]
}

// Lookup returns the key latched for addr. Transparent resolves to NoKey.
func (s *LayerStack) Lookup(addr keys.KeyAddr) keys.Key {
	k := s.keymap.At(s.LookupActiveLayer(addr), addr)
	if k.IsTransparent() {
		return keys.NoKey
	}
	return k
}

// top returns the highest active layer with a non-transparent entry at addr.
func (s *LayerStack) top(addr keys.KeyAddr) ir.LayerID {
	for l := len(s.keymap.Layers) - 1; l > 0; l-- {
		id := ir.LayerID(l)
		if s.IsActive(id) && !s.keymap.At(id, addr).IsTransparent() {
			return id
		}
	}
	return 0
}

func (s *LayerStack) IsActive(layer ir.LayerID) bool {
	return layer < ir.MaxLayers && s.active&(1<<layer) != 0
}

func (s *LayerStack) Activate(layer ir.LayerID) {
	if layer < ir.MaxLayers {
		s.active |= 1 << layer
	}
}

// Deactivate hides layer. Layer 0 cannot be deactivated.
func (s *LayerStack) Deactivate(layer ir.LayerID) {
	if layer > 0 && layer < ir.MaxLayers {
		s.active &^= 1 << layer
	}
}

// ActiveLayers returns the active-layer bitmap.
func (s *LayerStack) ActiveLayers() uint32 { return s.active }
