package keyboard

import "github.com/roach88/modlayers/internal/keys"

// Matrix records which physical keys were masked during the current cycle.
type Matrix struct {
	geometry keys.Geometry
	masked   []bool
}

func NewMatrix(g keys.Geometry) *Matrix {
	return &Matrix{geometry: g, masked: make([]bool, g.Size())}
}

// MaskKey suppresses addr until the next Clear. Addresses outside the matrix
// are ignored.
func (m *Matrix) MaskKey(addr keys.KeyAddr) {
	if m.geometry.Contains(addr) {
		m.masked[m.geometry.Index(addr)] = true
	}
}

func (m *Matrix) IsMasked(addr keys.KeyAddr) bool {
	return m.geometry.Contains(addr) && m.masked[m.geometry.Index(addr)]
}

// Masked lists masked addresses in scan order.
func (m *Matrix) Masked() []keys.KeyAddr {
	var out []keys.KeyAddr
	m.geometry.Each(func(a keys.KeyAddr) {
		if m.masked[m.geometry.Index(a)] {
			out = append(out, a)
		}
	})
	return out
}

// Clear unmasks every key.
func (m *Matrix) Clear() {
	for i := range m.masked {
		m.masked[i] = false
	}
}
