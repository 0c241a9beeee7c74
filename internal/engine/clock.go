package engine

import "sync/atomic"

// Clock numbers scan cycles.
//
// The engine advances it once per AfterEachCycle. Cycle numbers are logical:
// traces and the run log order by them, never by wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), so a
// status reporter may read Current while the pipeline advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific cycle number.
// Used for replay to resume from last recorded cycle.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new cycle number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current cycle number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
