package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Masked   bool // optional - only cycles with a masked event
}

// TraceRun identifies the traced run.
type TraceRun struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	Scenario      string `json:"scenario"`
	ConfigHash    string `json:"config_hash"`
	EngineVersion string `json:"engine_version"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      TraceRun         `json:"run"`
	Timeline []map[string]any `json:"timeline"`
	Stats    TraceStats       `json:"stats"`

	cycles []ir.CycleRecord
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Cycles   int `json:"cycles"`
	Events   int `json:"events"`
	Masked   int `json:"masked"`
	Releases int `json:"releases"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the cycle timeline of a recorded run",
		Long: `Show the cycle-by-cycle timeline of a recorded run.

Each cycle lists the keys held down, the report sent, the modifier locks
committed at its end and the active layers, followed by every keyswitch
event the engine saw and whether it was masked.

Examples:
  modlayers trace --db ./runs.db --run alt-overlay-run
  modlayers trace --db ./runs.db --run alt-overlay-run --masked
  modlayers trace --db ./runs.db --run alt-overlay-run --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().BoolVar(&opts.Masked, "masked", false, "only show cycles with masked events")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	rows, err := st.ReadCycles(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read cycles", err)
	}

	result := buildTrace(run, rows, opts.Masked)

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTrace assembles the timeline. When maskedOnly is set, cycles in which
// nothing was masked are left out; stats always cover the whole run.
func buildTrace(run store.Run, rows []store.CycleRow, maskedOnly bool) TraceResult {
	result := TraceResult{
		Run: TraceRun{
			ID:            run.ID,
			Seq:           run.Seq,
			Scenario:      run.Scenario,
			ConfigHash:    run.ConfigHash,
			EngineVersion: run.EngineVersion,
		},
		Timeline: []map[string]any{},
	}

	for _, row := range rows {
		rec := row.Record
		masked := len(rec.Masked())

		result.Stats.Cycles++
		result.Stats.Events += len(rec.Events)
		result.Stats.Masked += masked
		if rec.Released != 0 {
			result.Stats.Releases++
		}

		if maskedOnly && masked == 0 {
			continue
		}
		result.cycles = append(result.cycles, rec)
		result.Timeline = append(result.Timeline, rec.ToCanonicalMap())
	}

	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	return formatter.JSON(CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.Run.ID,
	})
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.ID)
	fmt.Fprintf(w, "Scenario: %s\n", result.Run.Scenario)
	if verbose {
		fmt.Fprintf(w, "Config: %s\n", result.Run.ConfigHash)
		fmt.Fprintf(w, "Engine: %s\n", result.Run.EngineVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.cycles) == 0 {
		fmt.Fprintln(w, "  (no cycles)")
	}
	for _, rec := range result.cycles {
		formatCycle(w, rec, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Cycles:   %d\n", result.Stats.Cycles)
	fmt.Fprintf(w, "  Events:   %d\n", result.Stats.Events)
	fmt.Fprintf(w, "  Masked:   %d\n", result.Stats.Masked)
	fmt.Fprintf(w, "  Releases: %d\n", result.Stats.Releases)

	return nil
}

// formatCycle formats one cycle and its events for text output.
func formatCycle(w io.Writer, rec ir.CycleRecord, verbose bool) {
	down := make([]string, len(rec.Down))
	for i, a := range rec.Down {
		down[i] = a.String()
	}
	fmt.Fprintf(w, "  [%d] down=[%s] report=%x layers=%v\n",
		rec.Cycle, strings.Join(down, " "), rec.Report[:], rec.LayerList())
	if verbose || rec.Released != 0 {
		fmt.Fprintf(w, "       held=%s unheld=%s pressed=%s released=%s\n",
			rec.LockedHeld, rec.LockedUnheld, rec.PressedDirectly, rec.Released)
	}

	for _, ev := range rec.Events {
		mark := " "
		if ev.Result == ir.ResultConsumed {
			mark = "x"
		}
		where := ev.Addr.String()
		if ev.State.IsInjected() {
			where = "-"
		}
		fmt.Fprintf(w, "     %s %d %-5s %-14s %s\n", mark, ev.Seq, where, ev.Key, ev.State)
	}
}
