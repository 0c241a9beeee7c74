package store

import (
	"context"
	"fmt"

	"github.com/roach88/modlayers/internal/ir"
)

// Run is one recorded scenario execution.
type Run struct {
	ID            string
	Seq           int64
	Scenario      string
	ConfigHash    string
	Config        string // canonical JSON, compiles back via the CUE loader
	EngineVersion string
	IRVersion     string
}

// NewRun describes a run of scenario against cfg.
func NewRun(id, scenario string, cfg *ir.Config) (Run, error) {
	data, err := ir.MarshalCanonical(cfg.ToCanonicalMap())
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	hash, err := ir.ConfigHash(cfg)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	return Run{
		ID:            id,
		Scenario:      scenario,
		ConfigHash:    hash,
		Config:        string(data),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}, nil
}

// WriteRun inserts a run and assigns it the next run seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency; the stored run is
// returned either way.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	// WHERE true disambiguates INSERT ... SELECT from the upsert clause
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, scenario, config_hash, config, engine_version, ir_version)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ? FROM runs WHERE true
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.ConfigHash,
		run.Config,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	stored, err := s.ReadRun(ctx, run.ID)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	return stored, nil
}

// WriteCycle records a cycle and its events atomically. The cycle digest is
// computed here so that replay can compare outcomes without re-reading
// events.
//
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting a cycle is a no-op.
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteCycle(ctx context.Context, runID string, rec ir.CycleRecord) error {
	digest, err := ir.CycleDigest(rec)
	if err != nil {
		return fmt.Errorf("write cycle: %w", err)
	}
	down, err := marshalAddrs(rec.Down)
	if err != nil {
		return fmt.Errorf("write cycle: %w", err)
	}
	injected, err := marshalKeys(rec.Injected)
	if err != nil {
		return fmt.Errorf("write cycle: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write cycle: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycles
		(run_id, cycle, down, injected, report, locked_held, locked_unheld, pressed_directly, released, active_layers, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		runID,
		rec.Cycle,
		down,
		injected,
		marshalReport(rec.Report),
		int(rec.LockedHeld),
		int(rec.LockedUnheld),
		int(rec.PressedDirectly),
		int(rec.Released),
		int64(rec.ActiveLayers),
		digest,
	)
	if err != nil {
		return fmt.Errorf("write cycle: insert cycle: %w", err)
	}

	for _, ev := range rec.Events {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events
			(run_id, cycle, seq, row, col, code, flags, state, result)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			runID,
			rec.Cycle,
			ev.Seq,
			int(ev.Addr.Row),
			int(ev.Addr.Col),
			int(ev.Key.Code),
			int(ev.Key.Flags),
			int(ev.State),
			ev.Result,
		)
		if err != nil {
			return fmt.Errorf("write cycle: insert event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write cycle: commit: %w", err)
	}
	return nil
}
