package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/modlayers/internal/compiler"
	"github.com/roach88/modlayers/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled config and its hash.
type CompilationResult struct {
	Config map[string]any `json:"config"`
	Hash   string         `json:"hash"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Rows     int
	Cols     int
	Layers   int
	Overlays int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config-dir>",
		Short: "Compile a CUE keyboard config to canonical JSON",
		Long: `Compile a CUE keyboard config to its canonical form.

The compiler loads every CUE file in the directory, validates the keyboard
geometry, keymap and overlay rules, and outputs canonical JSON together with
the config hash recorded by runs. The JSON is itself valid CUE and compiles
back to the same hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := compiler.LoadDir(configDir)
	if err != nil {
		le := compiler.AsLoadError(err)
		return outputCompileError(formatter, le.Code, le.Message, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(loaded.Files), configDir)

	// Report every problem, not only the first one Build hits.
	if vr := ValidateValue(loaded); !vr.Valid {
		return outputCompileErrors(formatter, vr.Errors)
	}

	cfg, err := compiler.CompileConfig(loaded.Value)
	if err != nil {
		le := compiler.AsLoadError(err)
		return outputCompileError(formatter, le.Code, le.Message, nil)
	}

	hash, err := ir.ConfigHash(cfg)
	if err != nil {
		return outputCompileError(formatter, compiler.ErrCodeGeneric, err.Error(), nil)
	}

	result := &CompilationResult{
		Config: cfg.ToCanonicalMap(),
		Hash:   hash,
	}

	if opts.Output != "" {
		if err := writeConfigToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, compiler.ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, calculateStats(cfg), opts.Output)
}

// calculateStats computes summary statistics from a compiled config.
func calculateStats(cfg *ir.Config) CompilationStats {
	return CompilationStats{
		Rows:     int(cfg.Geometry.Rows),
		Cols:     int(cfg.Geometry.Cols),
		Layers:   len(cfg.LayerNames),
		Overlays: cfg.Overlays.Len(),
	}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "\u2713 Compiled %dx%d keyboard, %d layer(s), %d overlay rule(s)\n",
		stats.Rows, stats.Cols, stats.Layers, stats.Overlays)
	fmt.Fprintf(formatter.Writer, "Hash: %s\n", result.Hash)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical config to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs every validation error that blocked compilation.
func outputCompileErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, e := range errs {
			cliErrors[i] = CLIError{Code: e.Code, Message: e.Field + ": " + e.Message}
		}
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Compilation failed")
	writeFindings(formatter, errs)

	return failure
}

// writeConfigToFile writes the canonical config to a file.
func writeConfigToFile(result *CompilationResult, filename string) error {
	// Indented for readability; hashing uses the compact canonical form.
	data, err := json.MarshalIndent(result.Config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
