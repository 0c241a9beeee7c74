package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/modlayers/internal/ir"
	"github.com/roach88/modlayers/internal/keys"
	"github.com/roach88/modlayers/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Cycles   []ir.CycleRecord // Offending cycles, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Cycles) > 0 {
		fmt.Fprintf(&buf, "\nCycles:\n")
		for _, c := range e.Cycles {
			fmt.Fprintf(&buf, "  [%d] down=%v held=%s unheld=%s released=%s layers=%v\n",
				c.Cycle, c.Down, c.LockedHeld, c.LockedUnheld, c.Released, c.LayerList())
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store  *store.Store
	Ctx    context.Context
	RunID  string
	Config *ir.Config
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMaskedCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: masked_count requires database context", i)
			} else {
				err = assertMaskedCount(actx, assertion)
			}
		case AssertLayerActive, AssertLayerInactive:
			if actx == nil || actx.Config == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a config", i, assertion.Type)
			} else {
				err = assertLayer(result.Cycles, actx.Config, assertion)
			}
		case AssertNeverLockedBoth:
			err = assertNeverLockedBoth(result.Cycles)
		case AssertNoRelease:
			err = assertNoRelease(result.Cycles, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertMaskedCount counts consumed events in the run log.
func assertMaskedCount(actx *AssertionContext, assertion Assertion) error {
	n, err := actx.Store.CountMasked(actx.Ctx, actx.RunID)
	if err != nil {
		return &AssertionError{
			Type:     AssertMaskedCount,
			Expected: fmt.Sprintf("%d masked events", *assertion.Count),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if n != *assertion.Count {
		return &AssertionError{
			Type:     AssertMaskedCount,
			Expected: fmt.Sprintf("%d masked events", *assertion.Count),
			Actual:   fmt.Sprintf("%d masked events", n),
		}
	}
	return nil
}

// assertLayer checks a layer's visibility at the selected cycle.
func assertLayer(cycles []ir.CycleRecord, cfg *ir.Config, assertion Assertion) error {
	want := assertion.Type == AssertLayerActive

	id, err := cfg.LayerID(assertion.Layer)
	if err != nil {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("layer %q in config", assertion.Layer),
			Actual:   err.Error(),
		}
	}

	rec, ok := selectCycle(cycles, assertion.Cycle)
	if !ok {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("cycle %s to exist", describeCycle(assertion.Cycle)),
			Actual:   fmt.Sprintf("%d cycles ran", len(cycles)),
		}
	}

	if active := rec.ActiveLayers&(1<<id) != 0; active != want {
		state := "inactive"
		if want {
			state = "active"
		}
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("layer %q %s at cycle %d", assertion.Layer, state, rec.Cycle),
			Actual:   fmt.Sprintf("active layers %v", rec.LayerList()),
			Cycles:   []ir.CycleRecord{rec},
		}
	}
	return nil
}

// assertNeverLockedBoth checks that no cycle ends with a modifier locked
// both held and unheld.
func assertNeverLockedBoth(cycles []ir.CycleRecord) error {
	var bad []ir.CycleRecord
	for _, c := range cycles {
		if c.LockedHeld.Intersects(c.LockedUnheld) {
			bad = append(bad, c)
		}
	}
	if len(bad) > 0 {
		return &AssertionError{
			Type:     AssertNeverLockedBoth,
			Expected: "locked held and locked unheld disjoint in every cycle",
			Actual:   fmt.Sprintf("%d cycles overlap", len(bad)),
			Cycles:   bad,
		}
	}
	return nil
}

// assertNoRelease checks that the finalizer forced nothing off.
func assertNoRelease(cycles []ir.CycleRecord, assertion Assertion) error {
	candidates := cycles
	if assertion.Cycle != nil {
		rec, ok := selectCycle(cycles, assertion.Cycle)
		if !ok {
			return &AssertionError{
				Type:     AssertNoRelease,
				Expected: fmt.Sprintf("cycle %s to exist", describeCycle(assertion.Cycle)),
				Actual:   fmt.Sprintf("%d cycles ran", len(cycles)),
			}
		}
		candidates = []ir.CycleRecord{rec}
	}

	var bad []ir.CycleRecord
	for _, c := range candidates {
		if !c.Released.IsEmpty() {
			bad = append(bad, c)
		}
	}
	if len(bad) > 0 {
		return &AssertionError{
			Type:     AssertNoRelease,
			Expected: "no modifiers released",
			Actual:   fmt.Sprintf("released %s at cycle %d", bad[0].Released, bad[0].Cycle),
			Cycles:   bad,
		}
	}
	return nil
}

func selectCycle(cycles []ir.CycleRecord, n *int64) (ir.CycleRecord, bool) {
	if len(cycles) == 0 {
		return ir.CycleRecord{}, false
	}
	if n == nil {
		return cycles[len(cycles)-1], true
	}
	for _, c := range cycles {
		if c.Cycle == *n {
			return c, true
		}
	}
	return ir.CycleRecord{}, false
}

func describeCycle(n *int64) string {
	if n == nil {
		return "last"
	}
	return fmt.Sprintf("%d", *n)
}

// checkExpect compares a cycle record with an expect clause and returns one
// message per mismatch.
func checkExpect(cfg *ir.Config, rec ir.CycleRecord, exp *ExpectClause) []string {
	var msgs []string

	if exp.Masked != nil {
		got := addrStrings(rec.Masked())
		if !slices.Equal(got, exp.Masked) {
			msgs = append(msgs, fmt.Sprintf("masked = %v, expected %v", got, exp.Masked))
		}
	}

	if exp.ReportModifiers != nil {
		want, err := keys.ParseModSet(exp.ReportModifiers)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("report_modifiers: %v", err))
		} else if got := rec.ReportModifiers(); got != want {
			msgs = append(msgs, fmt.Sprintf("report modifiers = %s, expected %s", got, want))
		}
	}

	if exp.ReportKeys != nil {
		want, err := parseKeyCodes(exp.ReportKeys)
		got := rec.ReportKeys()
		slices.Sort(got)
		switch {
		case err != nil:
			msgs = append(msgs, fmt.Sprintf("report_keys: %v", err))
		case !slices.Equal(got, want):
			msgs = append(msgs, fmt.Sprintf("report keys = %v, expected %v", got, want))
		}
	}

	if exp.ActiveLayers != nil {
		want, err := layerIDs(cfg, exp.ActiveLayers)
		got := rec.LayerList()
		switch {
		case err != nil:
			msgs = append(msgs, fmt.Sprintf("active_layers: %v", err))
		case !slices.Equal(got, want):
			msgs = append(msgs, fmt.Sprintf("active layers = %v, expected %v", got, want))
		}
	}

	return msgs
}

func addrStrings(addrs []keys.KeyAddr) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

// parseKeyCodes returns the sorted codes of the named keys.
func parseKeyCodes(names []string) ([]keys.KeyCode, error) {
	var out []keys.KeyCode
	for _, name := range names {
		k, err := keys.ParseKey(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k.Code)
	}
	slices.Sort(out)
	return out, nil
}

// layerIDs returns the sorted ids of the named layers.
func layerIDs(cfg *ir.Config, names []string) ([]int, error) {
	var out []int
	for _, name := range names {
		id, err := cfg.LayerID(name)
		if err != nil {
			return nil, err
		}
		out = append(out, int(id))
	}
	slices.Sort(out)
	return out, nil
}
