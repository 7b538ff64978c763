package harness

// TraceEvent is one journaled lifecycle event.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Event      string `json:"event"`
	Identifier string `json:"identifier,omitempty"`
	URI        string `json:"uri,omitempty"`
	Async      bool   `json:"async,omitempty"`
	Status     int    `json:"status,omitempty"`
	LoadID     string `json:"load_id,omitempty"`
}

// Label renders the event as "name:identifier", the form used by trace_order.
func (e TraceEvent) Label() string {
	return e.Event + ":" + e.Identifier
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists the lifecycle events in dispatch order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
