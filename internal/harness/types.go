package harness

// TraceEvent is one backend call as the fake backend received it.
type TraceEvent struct {
	Seq      int    `json:"seq"`
	Route    string `json:"route"`
	Method   string `json:"method"`
	Path     string `json:"path"`
	Token    string `json:"token,omitempty"`
	Query    string `json:"query,omitempty"`
	File     string `json:"file,omitempty"`
	Meta     string `json:"meta,omitempty"`
	Canceled bool   `json:"canceled,omitempty"`
}

// StepResult is what one scenario step produced.
type StepResult struct {
	Action      string   `json:"action"`
	Outcome     string   `json:"outcome,omitempty"`
	Correlation string   `json:"correlation,omitempty"`
	Token       string   `json:"token,omitempty"`
	Status      int      `json:"status,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Error       string   `json:"error,omitempty"`
	Count       int      `json:"count,omitempty"`
	Results     int      `json:"results,omitempty"`
	Outputs     []string `json:"outputs,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`
	Steps []StepResult `json:"steps"`

	// Waits are the retry backoffs requested, in order.
	Waits []string `json:"waits,omitempty"`

	// Activity holds the activity log and task lines, oldest first.
	Activity []string `json:"activity,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
