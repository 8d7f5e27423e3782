package harness

import "github.com/roach88/ranked/internal/ir"

// TraceEvent records the outcome of one flow step.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Rank  *int64 `json:"rank,omitempty"`
	Rows  *int   `json:"rows,omitempty"`
	Error string `json:"error,omitempty"`
}

// RecordState is one record of a scope snapshot.
type RecordState struct {
	ID   string `json:"id"`
	Rank int64  `json:"rank"`
}

// ScopeState is the final content of one scope in rank order.
type ScopeState struct {
	Scope   ir.ScopeKey   `json:"scope"`
	Records []RecordState `json:"records"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final content of every non-empty scope, ordered by
	// canonical scope key.
	State []ScopeState `json:"state"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  []ScopeState{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome with the next sequence number.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// scope returns the snapshot of key, or nil if the scope is empty.
func (r *Result) scope(key ir.ScopeKey) *ScopeState {
	for i := range r.State {
		if r.State[i].Scope.Equal(key) {
			return &r.State[i]
		}
	}
	return nil
}
