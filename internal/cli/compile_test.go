package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modlayers/internal/compiler"
	"github.com/roach88/modlayers/internal/ir"
)

func TestCompileText(t *testing.T) {
	configDir := writeConfigDir(t, boardCUE)
	cfg, err := compiler.CompileDir(configDir)
	require.NoError(t, err)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), configDir)
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 Compiled 1x3 keyboard, 2 layer(s), 1 overlay rule(s)")
	assert.Contains(t, out, "Hash: "+ir.MustConfigHash(cfg))
}

func TestCompileJSON(t *testing.T) {
	configDir := writeConfigDir(t, boardCUE)
	cfg, err := compiler.CompileDir(configDir)
	require.NoError(t, err)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), configDir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ir.MustConfigHash(cfg), resp.Data.Hash)
	assert.Equal(t, []any{"base", "alt"}, resp.Data.Config["layers"])
}

func TestCompileOutputFileRoundTrips(t *testing.T) {
	configDir := writeConfigDir(t, boardCUE)
	outFile := filepath.Join(t.TempDir(), "board.json")

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), configDir, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical config to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)

	// The written JSON is valid CUE and compiles to the same config.
	original, err := compiler.CompileDir(configDir)
	require.NoError(t, err)
	again, err := compiler.CompileString(string(data))
	require.NoError(t, err)
	assert.Equal(t, ir.MustConfigHash(original), ir.MustConfigHash(again))
}

func TestCompileValidationErrors(t *testing.T) {
	src := strings.Replace(boardCUE, `overlay: "alt"`, `overlay: "base"`, 1)
	configDir := writeConfigDir(t, src)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), configDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "\u2717 Compilation failed")
	assert.Contains(t, out, "E207")
}

func TestCompileValidationErrorsJSON(t *testing.T) {
	src := strings.Replace(boardCUE, `"C-Left"`, `"C-Nowhere"`, 1)
	configDir := writeConfigDir(t, src)

	out, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), configDir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E204", resp.Error.Code)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	_, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
}

func TestCompileWriteFailure(t *testing.T) {
	configDir := writeConfigDir(t, boardCUE)
	outFile := filepath.Join(t.TempDir(), "missing", "dir", "board.json")

	_, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), configDir, "-o", outFile)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E007")
}
