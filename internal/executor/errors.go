package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InvocationError represents a step whose command could not be started at
// all (missing shell, bad working directory, cancelled run). It is recorded
// on the step's result and never aborts the run.
type InvocationError struct {
	StepName  string    // Name of the step that could not be invoked
	Command   string    // Command that failed to start
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the failure occurred
}

// NewInvocationError creates a new InvocationError with the current timestamp.
func NewInvocationError(stepName, command string, err error) *InvocationError {
	return &InvocationError{
		StepName:  stepName,
		Command:   command,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for InvocationError.
func (e *InvocationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("step %s: command %q could not be invoked", e.StepName, e.Command))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// TimeoutError represents a step killed by its execution deadline.
type TimeoutError struct {
	StepName  string        // Name of the step that timed out
	Timeout   time.Duration // Deadline that was exceeded
	Timestamp time.Time     // When the timeout occurred
}

// NewTimeoutError creates a new TimeoutError with the current timestamp.
func NewTimeoutError(stepName string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{
		StepName:  stepName,
		Timeout:   timeout,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %s: timed out after %v", e.StepName, e.Timeout)
}

// Unwrap returns context.DeadlineExceeded to support error wrapping.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// IsInvocationError checks if the error is or wraps an InvocationError.
func IsInvocationError(err error) bool {
	if err == nil {
		return false
	}
	var ie *InvocationError
	return errors.As(err, &ie)
}

// IsTimeoutError checks if the error is or wraps a TimeoutError or
// context.DeadlineExceeded.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
