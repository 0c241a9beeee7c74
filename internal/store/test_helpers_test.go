package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestConfig returns a 1x3 board with an alt overlay on the first key.
func createTestConfig() *ir.Config {
	g := keys.Geometry{Rows: 1, Cols: 3}
	km := ir.NewKeymap(g, 2)
	km.Set(0, keys.Addr(0, 0), keys.MustParseKey("Q"))
	km.Set(0, keys.Addr(0, 1), keys.MustParseKey("LeftAlt"))
	km.Set(0, keys.Addr(0, 2), keys.MustParseKey("C-Left"))
	km.Set(1, keys.Addr(0, 0), keys.MustParseKey("Home"))
	return &ir.Config{
		Geometry:   g,
		LayerNames: []string{"base", "alt"},
		Keymap:     km,
		Overlays:   ir.OverlayTable{{Original: 0, Overlay: 1, Mask: keys.ModLeftAlt}, {}},
	}
}

// createTestRun writes a run for createTestConfig.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := NewRun(id, "scenario.yaml", createTestConfig())
	if err != nil {
		t.Fatalf("NewRun() failed: %v", err)
	}
	stored, err := s.WriteRun(context.Background(), run)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return stored
}

// createTestCycle builds a cycle record with one masked and one passing event.
func createTestCycle(cycle int64) ir.CycleRecord {
	return ir.CycleRecord{
		Cycle:    cycle,
		Down:     []keys.KeyAddr{keys.Addr(0, 0), keys.Addr(0, 1)},
		Injected: []keys.Key{keys.MustParseKey("S-B")},
		Events: []ir.EventRecord{
			{Cycle: cycle, Seq: 0, Addr: keys.Addr(0, 0), Key: keys.MustParseKey("Q"), State: keys.StateToggledOn, Result: ir.ResultConsumed},
			{Cycle: cycle, Seq: 1, Addr: keys.Addr(0, 1), Key: keys.MustParseKey("LeftAlt"), State: keys.StateHeld, Result: ir.ResultOK},
			{Cycle: cycle, Seq: 2, Addr: keys.Addr(0xFF, 0xFF), Key: keys.MustParseKey("S-B"), State: keys.StateToggledOn | keys.Injected, Result: ir.ResultOK},
		},
		Report:          [8]byte{byte(keys.ModLeftShift), 0, 0x05},
		LockedHeld:      keys.ModNone,
		LockedUnheld:    keys.ModLeftAlt,
		PressedDirectly: keys.ModLeftAlt,
		Released:        keys.ModLeftAlt,
		ActiveLayers:    0b11,
	}
}
