package models

import (
	"errors"
	"fmt"
)

// Class classifies how a step's failure affects the overall run outcome.
type Class string

const (
	// ClassBlocking marks a step whose failure fails the whole run.
	ClassBlocking Class = "blocking"
	// ClassAdvisory marks a step whose failure is reported but does not
	// change the overall run outcome.
	ClassAdvisory Class = "advisory"
)

// Valid reports whether the class is one of the known values.
func (c Class) Valid() bool {
	return c == ClassBlocking || c == ClassAdvisory
}

// Step represents a single named verification command in a gate pipeline.
type Step struct {
	Name       string            `json:"name"`                 // Step name, unique within a run
	Command    string            `json:"command"`              // Shell command executed via the runner
	Class      Class             `json:"class"`                // blocking or advisory
	Transform  string            `json:"transform,omitempty"`  // Output transformer name ("" = none)
	Pattern    string            `json:"pattern,omitempty"`    // Regexp for the pattern transformer
	Env        map[string]string `json:"env,omitempty"`        // Explicit environment passed to the command
	SourceFile string            `json:"source_file,omitempty"` // Pipeline file this step came from
}

// Validate checks that the step has all required fields
func (s *Step) Validate() error {
	if s.Name == "" {
		return errors.New("step name is required")
	}
	if s.Command == "" {
		return fmt.Errorf("step %s: command is required", s.Name)
	}
	if s.Class != "" && !s.Class.Valid() {
		return fmt.Errorf("step %s: invalid class %q (must be %q or %q)", s.Name, s.Class, ClassBlocking, ClassAdvisory)
	}
	if s.Pattern != "" && s.Transform == "" {
		return fmt.Errorf("step %s: pattern requires the pattern transformer", s.Name)
	}
	return nil
}

// Blocking reports whether a failure of this step fails the run.
// An unset class defaults to blocking.
func (s *Step) Blocking() bool {
	return s.Class != ClassAdvisory
}
