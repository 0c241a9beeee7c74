package store

import (
	"context"
	"fmt"

	"github.com/roach88/modlayers/internal/keys"
)

// CycleInput is what a recorded cycle was driven with, plus the digest of
// what it produced.
type CycleInput struct {
	Cycle    int64
	Down     []keys.KeyAddr
	Injected []keys.Key
	Digest   string
}

// ReplayInputs returns the inputs of every cycle of a run, ordered by cycle.
// Feeding them to a fresh keyboard built from the run's config must
// reproduce each digest.
func (s *Store) ReplayInputs(ctx context.Context, runID string) ([]CycleInput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, down, injected, digest
		FROM cycles
		WHERE run_id = ?
		ORDER BY cycle ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("replay inputs: %w", err)
	}
	defer rows.Close()

	inputs := []CycleInput{}
	for rows.Next() {
		var (
			in             CycleInput
			down, injected string
		)
		if err := rows.Scan(&in.Cycle, &down, &injected, &in.Digest); err != nil {
			return nil, fmt.Errorf("replay inputs: scan: %w", err)
		}
		if in.Down, err = unmarshalAddrs(down); err != nil {
			return nil, err
		}
		if in.Injected, err = unmarshalKeys(injected); err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("replay inputs: iterate: %w", err)
	}
	return inputs, nil
}
