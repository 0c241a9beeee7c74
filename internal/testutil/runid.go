package testutil

import (
	"strconv"
	"sync"
)

// FixedRunIDGenerator returns predetermined run IDs for testing.
//
// Golden run logs and replay tests need IDs that do not change between
// executions. Implements store.RunIDGenerator.
//
// Thread-safety: FixedRunIDGenerator is safe for concurrent use via internal mutex.
type FixedRunIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDGenerator creates a generator that returns ids in order.
// With no ids it returns "test-run-1", "test-run-2", and so on.
func NewFixedRunIDGenerator(ids ...string) *FixedRunIDGenerator {
	return &FixedRunIDGenerator{ids: ids}
}

// Generate returns the next run ID.
//
// Panics if a non-empty list has been consumed, so a test that starts more
// runs than it declared fails fast.
func (g *FixedRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.idx++
	if len(g.ids) == 0 {
		return "test-run-" + strconv.Itoa(g.idx)
	}
	if g.idx > len(g.ids) {
		panic("FixedRunIDGenerator: all ids exhausted")
	}
	return g.ids[g.idx-1]
}
