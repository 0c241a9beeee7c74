package harness

import "github.com/roach88/modlayers/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions hold.
	Pass bool `json:"pass"`

	// RunID identifies the run in the store.
	RunID string `json:"run_id"`

	// ConfigHash identifies the compiled config the scenario ran against.
	ConfigHash string `json:"config_hash"`

	// Cycles contains every cycle record in order.
	Cycles []ir.CycleRecord `json:"cycles"`

	// Errors contains expect and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Cycles: []ir.CycleRecord{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Last returns the final cycle record, or false if none ran.
func (r *Result) Last() (ir.CycleRecord, bool) {
	if len(r.Cycles) == 0 {
		return ir.CycleRecord{}, false
	}
	return r.Cycles[len(r.Cycles)-1], true
}
