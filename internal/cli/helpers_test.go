package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// boardCUE is a one-row board. Holding LeftAlt at 0,1 shows the alt overlay,
// which turns 0,0 into Home; 0,2 is C-Left on every layer.
const boardCUE = `keyboard: {
	rows: 1
	cols: 3
}

layers: ["base", "alt"]

keymap: {
	base: [["Q", "LeftAlt", "C-Left"]]
	alt: [["Home", "___", "___"]]
}

overlays: [
	{original: "base", overlay: "alt", modifiers: ["LeftAlt"]},
]
`

const overlayScenario = `name: overlay
run_id: cli-run
cycles:
  - down: ["0,1"]
  - down: ["0,0", "0,1"]
    expect:
      report_keys: [Home]
      report_modifiers: []
      active_layers: [base, alt]
  - down: []
assertions:
  - type: never_locked_both
  - type: masked_count
    count: 0
`

// C-Left needs LeftAlt held while Home holds it unheld, so it is masked.
const maskedScenario = `name: masked
run_id: masked-run
cycles:
  - down: ["0,1"]
  - down: ["0,0", "0,1"]
  - down: ["0,0", "0,1", "0,2"]
    expect:
      masked: ["0,2"]
  - down: []
assertions:
  - type: masked_count
    count: 1
`

const failingScenario = `name: failing
cycles:
  - down: ["0,0"]
    expect:
      report_keys: [W]
`

// writeConfigDir writes a config directory holding a single board.cue.
func writeConfigDir(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "board.cue"), []byte(src), 0o644))
	return dir
}

// writeScenarios writes name -> YAML scenario files into a fresh directory.
func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// recordRun runs scenario into a new database and returns its path.
func recordRun(t *testing.T, scenario string) string {
	t.Helper()
	configDir := writeConfigDir(t, boardCUE)
	scenarios := writeScenarios(t, map[string]string{"s.yaml": scenario})
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := execute(NewRunCommand(&RootOptions{Format: "text"}),
		"--db", dbPath, configDir, filepath.Join(scenarios, "s.yaml"))
	require.NoError(t, err)
	return dbPath
}
