package ir

import (
	"fmt"

	"github.com/roach88/modlayers/internal/keys"
)

// Event results as recorded in traces and the run log.
const (
	ResultOK       = "ok"
	ResultConsumed = "consumed"
)

// EventRecord is one keyswitch event handed to the engine.
type EventRecord struct {
	Cycle  int64         `json:"cycle"`
	Seq    int64         `json:"seq"`
	Addr   keys.KeyAddr  `json:"addr"`
	Key    keys.Key      `json:"key"`
	State  keys.KeyState `json:"state"`
	Result string        `json:"result"`
}

// ToCanonicalMap renders r for golden traces.
func (r EventRecord) ToCanonicalMap() map[string]any {
	m := map[string]any{
		"seq":    r.Seq,
		"key":    r.Key.String(),
		"state":  r.State.String(),
		"result": r.Result,
	}
	if !r.State.IsInjected() {
		m["addr"] = r.Addr.String()
	}
	return m
}

// CycleRecord summarizes one scan-process-report-commit cycle.
type CycleRecord struct {
	Cycle    int64          `json:"cycle"`
	Down     []keys.KeyAddr `json:"down"`
	Injected []keys.Key     `json:"injected,omitempty"`
	Events   []EventRecord  `json:"events,omitempty"`

	// Report is the 8-byte HID boot report sent this cycle.
	Report [8]byte `json:"report"`

	// Lock state as committed at the end of the cycle.
	LockedHeld      keys.ModSet `json:"locked_held"`
	LockedUnheld    keys.ModSet `json:"locked_unheld"`
	PressedDirectly keys.ModSet `json:"pressed_directly"`

	// ActiveLayers is the layer bitmap after the finalizer ran.
	ActiveLayers uint32 `json:"active_layers"`

	// Released lists modifiers the finalizer forced off in the report.
	Released keys.ModSet `json:"released"`
}

// ReportModifiers returns the modifier byte of the report.
func (c CycleRecord) ReportModifiers() keys.ModSet { return keys.ModSet(c.Report[0]) }

// ReportKeys returns the non-empty key slots of the report.
func (c CycleRecord) ReportKeys() []keys.KeyCode {
	var out []keys.KeyCode
	for _, b := range c.Report[2:] {
		if b != 0 {
			out = append(out, keys.KeyCode(b))
		}
	}
	return out
}

// LayerList expands ActiveLayers into ascending layer ids.
func (c CycleRecord) LayerList() []int {
	var out []int
	for i := 0; i < MaxLayers; i++ {
		if c.ActiveLayers&(1<<i) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// Masked returns the addresses whose events were consumed this cycle.
func (c CycleRecord) Masked() []keys.KeyAddr {
	var out []keys.KeyAddr
	for _, e := range c.Events {
		if e.Result == ResultConsumed {
			out = append(out, e.Addr)
		}
	}
	return out
}

// ToCanonicalMap renders c for digests and golden traces. Idle events are
// not recorded by the pipeline, so Events only holds transitions.
func (c CycleRecord) ToCanonicalMap() map[string]any {
	down := make([]any, len(c.Down))
	for i, a := range c.Down {
		down[i] = a.String()
	}
	events := make([]any, len(c.Events))
	for i, e := range c.Events {
		events[i] = e.ToCanonicalMap()
	}
	m := map[string]any{
		"cycle":            c.Cycle,
		"down":             down,
		"events":           events,
		"report":           fmt.Sprintf("%x", c.Report[:]),
		"locked_held":      c.LockedHeld.String(),
		"locked_unheld":    c.LockedUnheld.String(),
		"pressed_directly": c.PressedDirectly.String(),
		"layers":           c.LayerList(),
		"released":         c.Released.String(),
	}
	if len(c.Injected) > 0 {
		inj := make([]any, len(c.Injected))
		for i, k := range c.Injected {
			inj[i] = k.String()
		}
		m["injected"] = inj
	}
	return m
}
