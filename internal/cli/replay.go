package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/modlayers/internal/compiler"
	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keyboard"
	"github.com/roach88/modlayers/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// CycleMismatch is a replayed cycle whose digest differs from the recorded one.
type CycleMismatch struct {
	Cycle    int64  `json:"cycle"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string          `json:"run_id"`
	Scenario      string          `json:"scenario"`
	Cycles        int             `json:"cycles"`
	ConfigMatches bool            `json:"config_matches"`
	Mismatches    []CycleMismatch `json:"mismatches,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
	Deterministic bool            `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded runs and verify determinism",
		Long: `Replay recorded runs and verify the engine reproduces them.

For each run the stored config is compiled again and checked against the
recorded config hash. The recorded inputs of every cycle are then fed to a
fresh keyboard and each cycle digest is compared with the one written when
the run was recorded.

Exit codes:
  0 - All runs reproduce exactly
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  modlayers replay --db ./runs.db
  modlayers replay --db ./runs.db --run 0192f1c4-...
  modlayers replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", opts.RunID), err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	if len(runs) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, result)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	for _, run := range runs {
		runResult, err := replayAndVerifyRun(ctx, st, run, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyRun re-executes a run's recorded inputs and compares digests.
func replayAndVerifyRun(ctx context.Context, st *store.Store, run store.Run, logger *slog.Logger) (ReplayRunResult, error) {
	out := ReplayRunResult{
		RunID:    run.ID,
		Scenario: run.Scenario,
	}

	if run.EngineVersion != ir.EngineVersion {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("recorded with engine %s, replaying with %s", run.EngineVersion, ir.EngineVersion))
	}

	cfg, err := compiler.CompileString(run.Config)
	if err != nil {
		return out, fmt.Errorf("recompiling stored config: %w", err)
	}
	hash, err := ir.ConfigHash(cfg)
	if err != nil {
		return out, err
	}
	out.ConfigMatches = hash == run.ConfigHash

	inputs, err := st.ReplayInputs(ctx, run.ID)
	if err != nil {
		return out, err
	}
	out.Cycles = len(inputs)

	kb, err := keyboard.New(cfg, keyboard.WithLogger(logger))
	if err != nil {
		return out, err
	}

	for _, in := range inputs {
		rec, err := kb.Cycle(in.Down, in.Injected)
		if err != nil {
			return out, fmt.Errorf("cycle %d: %w", in.Cycle, err)
		}
		digest, err := ir.CycleDigest(rec)
		if err != nil {
			return out, err
		}
		if rec.Cycle != in.Cycle || digest != in.Digest {
			out.Mismatches = append(out.Mismatches, CycleMismatch{
				Cycle:    in.Cycle,
				Recorded: in.Digest,
				Replayed: digest,
			})
		}
	}

	out.Deterministic = out.ConfigMatches && len(out.Mismatches) == 0
	return out, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.JSON(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "\u2713"
		if !run.Deterministic {
			status = "\u2717"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Scenario)
		fmt.Fprintf(w, "  Cycles: %d\n", run.Cycles)

		if !run.ConfigMatches {
			fmt.Fprintln(w, "  Warning: Stored config no longer hashes to the recorded hash!")
		}
		for _, m := range run.Mismatches {
			fmt.Fprintf(w, "  cycle %d: recorded %s, replayed %s\n", m.Cycle, m.Recorded, m.Replayed)
		}
		if verbose {
			for _, warn := range run.Warnings {
				fmt.Fprintf(w, "  Note: %s\n", warn)
			}
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "\u2713 All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "\u2717 Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
