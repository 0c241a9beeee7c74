package engine

import "github.com/roach88/modlayers/internal/keys"

// RequirementStore holds, per matrix address, the modifiers that must read as
// unheld while that key stays down. It is allocated once and never resized.
type RequirementStore struct {
	geometry keys.Geometry
	entries  []keys.ModSet
}

// NewRequirementStore allocates an empty store for g.
func NewRequirementStore(g keys.Geometry) *RequirementStore {
	return &RequirementStore{
		geometry: g,
		entries:  make([]keys.ModSet, g.Size()),
	}
}

// Geometry returns the matrix shape the store was sized for.
func (s *RequirementStore) Geometry() keys.Geometry { return s.geometry }

// Get returns the requirement at addr. Addresses outside the matrix read as
// empty.
func (s *RequirementStore) Get(addr keys.KeyAddr) keys.ModSet {
	if !s.geometry.Contains(addr) {
		return keys.ModNone
	}
	return s.entries[s.geometry.Index(addr)]
}

// Set stores m at addr. It reports false, storing nothing, when addr lies
// outside the matrix.
func (s *RequirementStore) Set(addr keys.KeyAddr, m keys.ModSet) bool {
	if !s.geometry.Contains(addr) {
		return false
	}
	s.entries[s.geometry.Index(addr)] = m
	return true
}

// Clear empties the entry at addr.
func (s *RequirementStore) Clear(addr keys.KeyAddr) {
	s.Set(addr, keys.ModNone)
}

// Reset empties every entry.
func (s *RequirementStore) Reset() {
	for i := range s.entries {
		s.entries[i] = keys.ModNone
	}
}
