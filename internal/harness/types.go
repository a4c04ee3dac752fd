package harness

import "github.com/roach88/rivervm/internal/canon"

// TraceEvent records the outcome of one flow step. Steps are named rather
// than identified by content id so traces stay readable.
type TraceEvent struct {
	Seq     int    `json:"seq"`
	Step    string `json:"step"`
	Signer  string `json:"signer"`
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
	Code    string `json:"code,omitempty"`
}

// canonical renders the event for golden comparison.
func (e TraceEvent) canonical() canon.Object {
	obj := canon.Object{
		"seq":     canon.Int(e.Seq),
		"step":    canon.String(e.Step),
		"signer":  canon.String(e.Signer),
		"type":    canon.String(e.Type),
		"outcome": canon.String(e.Outcome),
	}
	if e.Code != "" {
		obj["code"] = canon.String(e.Code)
	}
	return obj
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// IDs maps step names to content ids.
	IDs map[string]string `json:"ids"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		IDs:    make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event with the next sequence number.
func (r *Result) AddTrace(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}
