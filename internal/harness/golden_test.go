package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_AltOverlay(t *testing.T) {
	// Regenerate with:
	//   go test ./internal/harness -run TestRunWithGolden_AltOverlay -update
	result, err := RunWithGolden(t, loadScenario(t, "alt_overlay"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	s := loadScenario(t, "masked_chord")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
	assert.True(t, strings.HasPrefix(string(a), `{"cycles":[{"cycle":0,`), "keys sorted, cycles first")
	assert.True(t, strings.HasSuffix(string(a), `"scenario_name":"masked_chord"}`))
	assert.Equal(t, 2, strings.Count(string(a), `"result":"consumed"`))
}

func TestMarshalTrace_Empty(t *testing.T) {
	data, err := MarshalTrace("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"cycles":[],"scenario_name":"empty"}`, string(data))
}
