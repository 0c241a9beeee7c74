package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadRun() error = %v, want sql.ErrNoRows", err)
	}
	_, err = s.LatestRun(context.Background())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("LatestRun() error = %v, want sql.ErrNoRows", err)
	}
}

func TestListRuns_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("empty store: got %v, want empty non-nil slice", runs)
	}

	for _, id := range []string{"zeta", "alpha", "mid"} {
		createTestRun(t, s, id)
	}
	runs, err = s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []string{"zeta", "alpha", "mid"}) {
		t.Errorf("order = %v, want insertion (seq) order", ids)
	}

	latest, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() failed: %v", err)
	}
	if latest.ID != "mid" {
		t.Errorf("LatestRun() = %q, want mid", latest.ID)
	}
}

func TestReadCycles_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	want := []ir.CycleRecord{createTestCycle(0), createTestCycle(1)}
	want[1].Down = nil
	want[1].Injected = nil
	want[1].Events = want[1].Events[:1]

	// Written out of order; reads come back by cycle.
	for _, i := range []int{1, 0} {
		if err := s.WriteCycle(ctx, "run-a", want[i]); err != nil {
			t.Fatalf("WriteCycle() failed: %v", err)
		}
	}

	got, err := s.ReadCycles(ctx, "run-a")
	if err != nil {
		t.Fatalf("ReadCycles() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d cycles, want 2", len(got))
	}
	for i, row := range got {
		if !reflect.DeepEqual(row.Record, want[i]) {
			t.Errorf("cycle %d:\n got %+v\nwant %+v", i, row.Record, want[i])
		}
		digest, err := ir.CycleDigest(row.Record)
		if err != nil {
			t.Fatalf("CycleDigest() failed: %v", err)
		}
		if digest != row.Digest {
			t.Errorf("cycle %d: stored digest does not match re-read record", i)
		}
	}
}

func TestReadEvents_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	for _, c := range []int64{2, 0, 1} {
		if err := s.WriteCycle(ctx, "run-a", createTestCycle(c)); err != nil {
			t.Fatalf("WriteCycle() failed: %v", err)
		}
	}

	events, err := s.ReadEvents(ctx, "run-a")
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 9 {
		t.Fatalf("got %d events, want 9", len(events))
	}
	for i, ev := range events {
		if ev.Cycle != int64(i/3) || ev.Seq != int64(i%3) {
			t.Errorf("event %d = (cycle %d, seq %d)", i, ev.Cycle, ev.Seq)
		}
	}
	if events[2].Key != keys.MustParseKey("S-B") || !events[2].State.IsInjected() {
		t.Errorf("injected event decoded as %+v", events[2])
	}

	n, err := s.CountMasked(ctx, "run-a")
	if err != nil {
		t.Fatalf("CountMasked() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("CountMasked() = %d, want 3", n)
	}
}

func TestReplayInputs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	rec := createTestCycle(0)
	if err := s.WriteCycle(ctx, "run-a", rec); err != nil {
		t.Fatalf("WriteCycle() failed: %v", err)
	}

	inputs, err := s.ReplayInputs(ctx, "run-a")
	if err != nil {
		t.Fatalf("ReplayInputs() failed: %v", err)
	}
	if len(inputs) != 1 {
		t.Fatalf("got %d inputs, want 1", len(inputs))
	}
	if !reflect.DeepEqual(inputs[0].Down, rec.Down) || !reflect.DeepEqual(inputs[0].Injected, rec.Injected) {
		t.Errorf("inputs = %+v", inputs[0])
	}
	if want, _ := ir.CycleDigest(rec); inputs[0].Digest != want {
		t.Errorf("digest = %s, want %s", inputs[0].Digest, want)
	}

	none, err := s.ReplayInputs(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("ReplayInputs(missing) = %v, %v", none, err)
	}
}
