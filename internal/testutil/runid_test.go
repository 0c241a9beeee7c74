package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modlayers/internal/store"
)

var _ store.RunIDGenerator = (*FixedRunIDGenerator)(nil)

func TestFixedRunIDGenerator_Sequence(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-a", "run-b")

	assert.Equal(t, "run-a", gen.Generate())
	assert.Equal(t, "run-b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestFixedRunIDGenerator_Default(t *testing.T) {
	gen := NewFixedRunIDGenerator()

	assert.Equal(t, "test-run-1", gen.Generate())
	assert.Equal(t, "test-run-2", gen.Generate())
}

func TestFixedRunIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedRunIDGenerator()
	const n = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			id := gen.Generate()
			mu.Lock()
			defer mu.Unlock()
			seen[id] = true
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	assert.True(t, seen["test-run-100"])
}
