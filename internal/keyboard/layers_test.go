package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

func TestLayerStack_Activation(t *testing.T) {
	s := NewLayerStack(testConfig(t).Keymap)

	assert.True(t, s.IsActive(0))
	s.Deactivate(0)
	assert.True(t, s.IsActive(0), "layer 0 is always active")

	s.Activate(3)
	assert.True(t, s.IsActive(3))
	assert.Equal(t, uint32(0b1001), s.ActiveLayers())
	s.Deactivate(3)
	assert.False(t, s.IsActive(3))

	s.Activate(40)
	assert.False(t, s.IsActive(40))
	assert.Equal(t, uint32(1), s.ActiveLayers())
}

func TestLayerStack_Latch(t *testing.T) {
	s := NewLayerStack(testConfig(t).Keymap)

	s.Activate(1)
	s.Latch(addrHome)
	s.Latch(addrQ)
	assert.Equal(t, ir.LayerID(1), s.LookupActiveLayer(addrHome))
	assert.Equal(t, ir.LayerID(0), s.LookupActiveLayer(addrQ), "transparent overlay entry falls through")
	assert.Equal(t, keys.MustParseKey("Home"), s.Lookup(addrHome))

	s.Deactivate(1)
	assert.Equal(t, ir.LayerID(1), s.LookupActiveLayer(addrHome), "latched until the next press")
	s.Latch(addrHome)
	assert.Equal(t, keys.MustParseKey("W"), s.Lookup(addrHome))
}

func TestLayerStack_OutsideMatrix(t *testing.T) {
	s := NewLayerStack(testConfig(t).Keymap)
	outside := keys.Addr(7, 7)

	s.Latch(outside)
	assert.Equal(t, ir.LayerID(0), s.LookupActiveLayer(outside))
	assert.Equal(t, keys.NoKey, s.Lookup(outside))
}

func TestMatrix(t *testing.T) {
	m := NewMatrix(keys.Geometry{Rows: 2, Cols: 2})

	m.MaskKey(keys.Addr(1, 1))
	m.MaskKey(keys.Addr(0, 1))
	m.MaskKey(keys.Addr(4, 4))
	assert.True(t, m.IsMasked(keys.Addr(1, 1)))
	assert.False(t, m.IsMasked(keys.Addr(4, 4)))
	assert.Equal(t, []keys.KeyAddr{keys.Addr(0, 1), keys.Addr(1, 1)}, m.Masked())

	m.Clear()
	assert.Empty(t, m.Masked())
}
