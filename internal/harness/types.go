package harness

import "github.com/roach88/tohu/internal/batch"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	Scenario    string `json:"scenario"`
	RunID       string `json:"run_id"`
	Seed        uint64 `json:"seed"`
	Num         int    `json:"num"`
	Fingerprint string `json:"fingerprint"`

	// Items is the generated batch.
	Items *batch.Items `json:"-"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Pass:     true,
		Scenario: name,
		Errors:   []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
