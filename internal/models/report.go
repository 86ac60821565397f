package models

import "time"

// Step execution status constants
const (
	StatusPass = "PASS" // Command ran and exited successfully
	StatusFail = "FAIL" // Command failed or could not be invoked
)

// Overall run status constants
const (
	OverallSuccess = "success" // No blocking step failed
	OverallFailure = "failure" // At least one blocking step failed
)

// Severity levels for annotations
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Annotation is a single user-facing diagnostic, optionally tied to a file
// and line. Message must be single-line safe: producers escape embedded
// newlines with annotate.EscapeMessage before constructing an Annotation.
type Annotation struct {
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// StepResult represents the outcome of executing a single step
type StepResult struct {
	Step        Step          `json:"step"`        // The step that was executed
	Status      string        `json:"status"`      // PASS or FAIL
	Output      string        `json:"output"`      // Combined stdout/stderr from the command
	ExitCode    int           `json:"exit_code"`   // Command exit status, -1 when it never ran
	Err         error         `json:"-"`           // Invocation error, nil when the tool ran
	Duration    time.Duration `json:"duration"`    // Time taken to execute
	Annotations []Annotation  `json:"annotations"` // Diagnostics derived from the output
}

// Passed reports whether the step's command succeeded.
func (r *StepResult) Passed() bool {
	return r.Status == StatusPass
}

// BlockingFailure reports whether this result fails the overall run.
func (r *StepResult) BlockingFailure() bool {
	return r.Status == StatusFail && r.Step.Blocking()
}

// RunReport represents the aggregate result of executing a pipeline once
type RunReport struct {
	RunID       string        `json:"run_id"`       // Unique identifier for this run
	Pipeline    string        `json:"pipeline"`     // Pipeline name
	Results     []StepResult  `json:"results"`      // Per-step results in execution order
	Overall     string        `json:"overall"`      // success or failure
	TotalSteps  int           `json:"total_steps"`  // Number of steps executed
	Passed      int           `json:"passed"`       // Number of passing steps
	Failed      int           `json:"failed"`       // Number of failing steps
	Annotations int           `json:"annotations"`  // Total annotation count across all steps
	StartedAt   time.Time     `json:"started_at"`   // When the run began
	Duration    time.Duration `json:"duration"`     // Total execution time
}

// Recompute derives the overall status and counters from Results.
// The run fails iff at least one blocking step failed; advisory failures
// are counted but never flip the overall status.
func (r *RunReport) Recompute() {
	r.TotalSteps = len(r.Results)
	r.Passed = 0
	r.Failed = 0
	r.Annotations = 0
	r.Overall = OverallSuccess

	for i := range r.Results {
		res := &r.Results[i]
		if res.Passed() {
			r.Passed++
		} else {
			r.Failed++
		}
		r.Annotations += len(res.Annotations)
		if res.BlockingFailure() {
			r.Overall = OverallFailure
		}
	}
}

// Succeeded reports whether no blocking step failed.
func (r *RunReport) Succeeded() bool {
	return r.Overall == OverallSuccess
}

// FailedResults returns the results of all failing steps, blocking or not.
func (r *RunReport) FailedResults() []StepResult {
	var failed []StepResult
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// AllAnnotations returns every annotation in step execution order.
func (r *RunReport) AllAnnotations() []Annotation {
	var out []Annotation
	for _, res := range r.Results {
		out = append(out, res.Annotations...)
	}
	return out
}
