package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/modlayers/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate a keyboard config without compiling it",
		Long: `Validate a CUE keyboard config without building the overlay table.

Reports every problem at once: geometry, layer names, keymap shape, unknown
key or modifier names, overlay rules naming unknown layers, and rules that
show a layer over itself. Rules shadowed by a later rule for the same layers
are reported as warnings and do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := compiler.LoadDir(configDir)
	if err != nil {
		le := compiler.AsLoadError(err)
		return outputValidateError(formatter, le.Code, le.Message, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", len(loaded.Files), configDir)

	result := ValidateValue(loaded)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateValue decodes and validates a loaded config, splitting findings
// into errors and warnings.
func ValidateValue(loaded *compiler.Loaded) ValidationResult {
	var findings []compiler.ValidationError

	src, err := compiler.Decode(loaded.Value)
	if err != nil {
		findings = append(findings, decodeFinding(err))
	} else {
		findings = compiler.Validate(src)
	}

	result := ValidationResult{Valid: true}
	for _, f := range findings {
		if f.IsWarning() {
			result.Warnings = append(result.Warnings, f)
			continue
		}
		result.Errors = append(result.Errors, f)
		result.Valid = false
	}
	return result
}

// decodeFinding converts a structural decode error to a validation error.
func decodeFinding(err error) compiler.ValidationError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		line := 0
		if ce.Pos.IsValid() {
			line = ce.Pos.Line()
		}
		return compiler.ValidationError{
			Field:   ce.Field,
			Message: ce.Message,
			Code:    compiler.ErrUnsupportedType,
			Line:    line,
		}
	}
	return compiler.ValidationError{Field: "config", Message: err.Error(), Code: compiler.ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "\u2713 Config valid")
	writeFindings(formatter, result.Warnings)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every error and warning.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	first := result.Errors[0]
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Validation failed")
	writeFindings(formatter, result.Errors)
	writeFindings(formatter, result.Warnings)

	// Validation failures = exit code 1
	return failure
}

func writeFindings(formatter *OutputFormatter, findings []compiler.ValidationError) {
	for _, f := range findings {
		fmt.Fprintln(formatter.Writer)
		if f.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", f.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", f.Code, f.Field, f.Message)
	}
}
