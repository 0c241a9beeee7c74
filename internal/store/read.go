package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

// CycleRow is a recorded cycle with the digest computed at write time.
type CycleRow struct {
	Record ir.CycleRecord
	Digest string
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, scenario, config_hash, config, engine_version, ir_version
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// LatestRun returns the run with the highest seq.
// Returns sql.ErrNoRows if the store has no runs.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, scenario, config_hash, config, engine_version, ir_version
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// ListRuns returns all runs ordered by seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, scenario, config_hash, config, engine_version, ir_version
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadCycles returns every cycle of a run with its events, ordered by cycle
// and then event seq.
func (s *Store) ReadCycles(ctx context.Context, runID string) ([]CycleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, down, injected, report, locked_held, locked_unheld, pressed_directly, released, active_layers, digest
		FROM cycles
		WHERE run_id = ?
		ORDER BY cycle ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	cycles := []CycleRow{}
	index := make(map[int64]int)
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		index[c.Record.Cycle] = len(cycles)
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	rows.Close()

	events, err := s.ReadEvents(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if i, ok := index[ev.Cycle]; ok {
			cycles[i].Record.Events = append(cycles[i].Record.Events, ev)
		}
	}
	return cycles, nil
}

// ReadEvents returns all events of a run ordered by cycle, seq.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]ir.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, seq, row, col, code, flags, state, result
		FROM events
		WHERE run_id = ?
		ORDER BY cycle ASC, seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.EventRecord{}
	for rows.Next() {
		var (
			ev                                ir.EventRecord
			row, col, code, flags, stateValue int
		)
		if err := rows.Scan(&ev.Cycle, &ev.Seq, &row, &col, &code, &flags, &stateValue, &ev.Result); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Addr = keys.Addr(uint8(row), uint8(col))
		ev.Key = keys.Key{Code: keys.KeyCode(code), Flags: keys.Flags(flags)}
		ev.State = keys.KeyState(stateValue)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// CountMasked returns how many events of a run were consumed.
func (s *Store) CountMasked(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE run_id = ? AND result = ?
	`, runID, ir.ResultConsumed).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count masked: %w", err)
	}
	return n, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	err := row.Scan(&run.ID, &run.Seq, &run.Scenario, &run.ConfigHash, &run.Config, &run.EngineVersion, &run.IRVersion)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

func scanCycle(row scanner) (CycleRow, error) {
	var (
		c                               CycleRow
		down, injected, report          string
		held, unheld, pressed, released int
		active                          int64
	)
	err := row.Scan(&c.Record.Cycle, &down, &injected, &report, &held, &unheld, &pressed, &released, &active, &c.Digest)
	if err != nil {
		return CycleRow{}, fmt.Errorf("scan cycle: %w", err)
	}

	if c.Record.Down, err = unmarshalAddrs(down); err != nil {
		return CycleRow{}, err
	}
	if c.Record.Injected, err = unmarshalKeys(injected); err != nil {
		return CycleRow{}, err
	}
	if c.Record.Report, err = unmarshalReport(report); err != nil {
		return CycleRow{}, err
	}
	c.Record.LockedHeld = keys.ModSet(held)
	c.Record.LockedUnheld = keys.ModSet(unheld)
	c.Record.PressedDirectly = keys.ModSet(pressed)
	c.Record.Released = keys.ModSet(released)
	c.Record.ActiveLayers = uint32(active)
	return c, nil
}
