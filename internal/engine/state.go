package engine

import "github.com/roach88/modlayers/internal/keys"

// Buffered is a double-buffered modifier set. Current is what this cycle's
// events check against; Next collects facts for the following cycle.
type Buffered struct {
	Current keys.ModSet
	Next    keys.ModSet
}

// Add records m in both halves so later events this cycle see it too.
func (b *Buffered) Add(m keys.ModSet) {
	b.Current |= m
	b.Next |= m
}

// Commit promotes Next to Current and clears Next.
func (b *Buffered) Commit() {
	b.Current = b.Next
	b.Next = 0
}

// LockState is the engine's per-cycle modifier bookkeeping.
type LockState struct {
	// Held pins modifiers that some held key needs treated as held.
	Held Buffered

	// Unheld pins modifiers that some held key needs treated as not held.
	Unheld Buffered

	// PressedDirectly collects bare modifier keys pressed this cycle.
	PressedDirectly keys.ModSet

	// WasPressedDirectly is PressedDirectly as of the previous commit.
	WasPressedDirectly keys.ModSet
}

// Commit advances every double-buffered field.
func (s *LockState) Commit() {
	s.Held.Commit()
	s.Unheld.Commit()
	s.WasPressedDirectly = s.PressedDirectly
	s.PressedDirectly = 0
}

// Consistent reports whether no modifier is locked both held and unheld.
func (s LockState) Consistent() bool {
	return !s.Held.Current.Intersects(s.Unheld.Current)
}
