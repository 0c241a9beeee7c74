package cli

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "modlayers", cmd.Use)
	assert.Contains(t, cmd.Long, "overlay layers")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "run", "replay", "test", "trace"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
	}{
		{"compile", "output"},
		{"run", "db"},
		{"run", "run-id"},
		{"replay", "db"},
		{"replay", "run"},
		{"test", "update"},
		{"test", "filter"},
		{"trace", "db"},
		{"trace", "run"},
		{"trace", "masked"},
	}

	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			assert.NotNil(t, sub.Flags().Lookup(tt.flag))
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	configDir := writeConfigDir(t, boardCUE)

	_, _, err := execute(NewRootCommand(), "--format", "xml", "validate", configDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootDispatch(t *testing.T) {
	configDir := writeConfigDir(t, boardCUE)

	out, _, err := execute(NewRootCommand(), "validate", configDir)
	require.NoError(t, err)
	assert.Contains(t, out, "\u2713 Config valid")
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()
	buf := &bytes.Buffer{}

	quiet := newLogger(&RootOptions{}, buf)
	assert.False(t, quiet.Enabled(ctx, slog.LevelInfo))
	assert.True(t, quiet.Enabled(ctx, slog.LevelWarn))

	verbose := newLogger(&RootOptions{Verbose: true}, buf)
	assert.True(t, verbose.Enabled(ctx, slog.LevelDebug))
}

func TestOpenExistingStore_NotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := openExistingStore(path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
	assert.NoFileExists(t, path)
}
