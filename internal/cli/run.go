package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/modlayers/internal/compiler"
	"github.com/roach88/modlayers/internal/harness"
	"github.com/roach88/modlayers/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	RunID    string

	// IDs allows overriding the run ID generator (for testing).
	// Used only when neither RunID nor the scenario fixes an ID; if nil,
	// defaults to UUIDv7Generator.
	IDs store.RunIDGenerator
}

// RunSummary describes a recorded run.
type RunSummary struct {
	RunID      string   `json:"run_id"`
	Scenario   string   `json:"scenario"`
	ConfigHash string   `json:"config_hash"`
	Cycles     int      `json:"cycles"`
	Masked     int      `json:"masked"`
	Pass       bool     `json:"pass"`
	Errors     []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config-dir> <scenario.yaml>",
		Short: "Run a scenario and record it in the run log",
		Long: `Run a scenario against a keyboard config and record every cycle.

The config is compiled, the SQLite database is created if it doesn't exist,
and the scenario's cycles are driven through the keyboard pipeline. The run,
its config and every cycle and event are written to the database, where
trace and replay can read them back.

Example:
  modlayers run --db ./runs.db ./config ./scenarios/alt_overlay.yaml
  modlayers run --db /tmp/test.db ./config ./chord.yaml --run-id chord-1 --verbose`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run ID (default: generated UUIDv7)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runScenarioFile(opts *RunOptions, configDir, scenarioFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	logger.Info("compiling config", "dir", configDir)
	cfg, err := compiler.CompileDir(configDir)
	if err != nil {
		le := compiler.AsLoadError(err)
		_ = formatter.Error(le.Code, le.Message, nil)
		return WrapExitError(ExitCommandError, "failed to compile config", err)
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// --run-id wins over the scenario's run_id; without either a UUIDv7 is
	// generated.
	ids := opts.IDs
	switch {
	case opts.RunID != "":
		ids = fixedRunID(opts.RunID)
	case scenario.RunID != "":
		ids = fixedRunID(scenario.RunID)
	case ids == nil:
		ids = store.UUIDv7Generator{}
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := harness.New(st, harness.WithLogger(logger), harness.WithRunIDGenerator(ids))
	result, err := h.Execute(ctx, scenario, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	masked, err := st.CountMasked(ctx, result.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	summary := RunSummary{
		RunID:      result.RunID,
		Scenario:   scenario.Name,
		ConfigHash: result.ConfigHash,
		Cycles:     len(result.Cycles),
		Masked:     masked,
		Pass:       result.Pass,
		Errors:     result.Errors,
	}
	logger.Info("run recorded", "run_id", summary.RunID, "cycles", summary.Cycles)

	return outputRunSummary(formatter, summary)
}

func outputRunSummary(formatter *OutputFormatter, summary RunSummary) error {
	var failure error
	if !summary.Pass {
		failure = NewExitError(ExitFailure, fmt.Sprintf("scenario %q failed with %d error(s)", summary.Scenario, len(summary.Errors)))
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary, RunID: summary.RunID}
		if failure != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: failure.Error()}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	mark := "\u2713"
	if failure != nil {
		mark = "\u2717"
	}
	fmt.Fprintf(w, "%s %s\n", mark, summary.Scenario)
	for _, e := range summary.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintf(w, "Run:    %s\n", summary.RunID)
	fmt.Fprintf(w, "Config: %s\n", summary.ConfigHash)
	fmt.Fprintf(w, "Cycles: %d (%d masked event(s))\n", summary.Cycles, summary.Masked)
	return failure
}

// fixedRunID hands out the same ID every time.
type fixedRunID string

func (f fixedRunID) Generate() string { return string(f) }
