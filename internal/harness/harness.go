package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/modlayers/internal/compiler"
	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keyboard"
	"github.com/roach88/modlayers/internal/store"
)

// DefaultRunID is used when a scenario does not fix its own run ID.
const DefaultRunID = "test-run-default"

// Harness is the test execution engine.
// It drives a keyboard through a scenario and records every cycle.
type Harness struct {
	store  *store.Store
	ids    store.RunIDGenerator
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the keyboard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// WithRunIDGenerator overrides run ID selection. Without it the scenario's
// RunID, or DefaultRunID, is used.
func WithRunIDGenerator(g store.RunIDGenerator) Option {
	return func(h *Harness) {
		h.ids = g
	}
}

// New creates a harness that records runs in st.
func New(st *store.Store, opts ...Option) *Harness {
	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, against
// the config compiled from scenario.Config.
func Run(scenario *Scenario) (*Result, error) {
	if scenario.Config == "" {
		return nil, fmt.Errorf("scenario %q names no config", scenario.Name)
	}
	cfg, err := compiler.CompileDir(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to compile config: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return New(st).Execute(context.Background(), scenario, cfg)
}

// Execute runs scenario against cfg and records it as a new run.
//
// Execution flow:
// 1. Write the run (config, hash, versions)
// 2. Drive the keyboard one cycle per step repetition, recording each cycle
// 3. Check expect clauses against the cycle records
// 4. Evaluate assertions against the records and the run log
func (h *Harness) Execute(ctx context.Context, scenario *Scenario, cfg *ir.Config) (*Result, error) {
	run, err := store.NewRun(h.runID(scenario), scenario.Name, cfg)
	if err != nil {
		return nil, err
	}
	run, err = h.store.WriteRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	result := NewResult()
	result.RunID = run.ID
	result.ConfigHash = run.ConfigHash

	var writeErr error
	kb, err := keyboard.New(cfg,
		keyboard.WithLogger(h.logger),
		keyboard.WithCycleHook(func(rec ir.CycleRecord) {
			if writeErr == nil {
				writeErr = h.store.WriteCycle(ctx, run.ID, rec)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Cycles {
		down, injected, err := step.inputs()
		if err != nil {
			return nil, fmt.Errorf("cycle step %d: %w", i, err)
		}

		for r := 0; r < step.repeats(); r++ {
			rec, err := kb.Cycle(down, injected)
			if err != nil {
				return nil, fmt.Errorf("cycle step %d: %w", i, err)
			}
			if writeErr != nil {
				return nil, fmt.Errorf("cycle step %d: failed to record cycle: %w", i, writeErr)
			}
			result.Cycles = append(result.Cycles, rec)
		}

		if step.Expect != nil {
			last, _ := result.Last()
			for _, msg := range checkExpect(cfg, last, step.Expect) {
				result.AddError(fmt.Sprintf("cycle %d: %s", last.Cycle, msg))
			}
		}

		h.logger.Info("cycle step completed",
			"step", i,
			"repeat", step.repeats(),
			"cycle", kb.Engine().Cycle(),
		)
	}

	actx := &AssertionContext{
		Store:  h.store,
		Ctx:    ctx,
		RunID:  run.ID,
		Config: cfg,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) runID(s *Scenario) string {
	if h.ids != nil {
		return h.ids.Generate()
	}
	if s.RunID != "" {
		return s.RunID
	}
	return DefaultRunID
}
