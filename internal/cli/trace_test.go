package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMissingFlags(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", "runs.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceDatabaseNotFound(t *testing.T) {
	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}),
		"--db", filepath.Join(t.TempDir(), "missing.db"), "--run", "x")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceRunNotFound(t *testing.T) {
	dbPath := recordRun(t, overlayScenario)

	_, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: nope")
}

func TestTraceText(t *testing.T) {
	dbPath := recordRun(t, overlayScenario)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "cli-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Run: cli-run")
	assert.Contains(t, out, "Scenario: overlay")
	assert.Contains(t, out, "[1] down=[0,0 0,1]")
	assert.Contains(t, out, "layers=[0 1]")
	// Home forced LeftAlt out of the report in cycle 1
	assert.Contains(t, out, "released=LeftAlt")
	assert.Contains(t, out, "Cycles:   3")
	assert.Contains(t, out, "Masked:   0")
}

func TestTraceJSONMaskedOnly(t *testing.T) {
	dbPath := recordRun(t, maskedScenario)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "json"}),
		"--db", dbPath, "--run", "masked-run", "--masked")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		RunID  string      `json:"run_id"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "masked-run", resp.RunID)

	// Stats cover the whole run, the timeline only the masking cycle
	assert.Equal(t, 4, resp.Data.Stats.Cycles)
	assert.Equal(t, 1, resp.Data.Stats.Masked)
	require.Len(t, resp.Data.Timeline, 1)
	assert.Equal(t, float64(2), resp.Data.Timeline[0]["cycle"])
}
