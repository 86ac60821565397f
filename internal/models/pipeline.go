package models

import "fmt"

// Pipeline represents an ordered gate pipeline parsed from one or more files.
type Pipeline struct {
	Name     string // Pipeline name (defaults to the file base name)
	Steps    []Step // Ordered steps, executed strictly in this order
	FilePath string // Original file or directory path
}

// Validate checks every step and enforces unique step names.
func (p *Pipeline) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("pipeline has no steps")
	}

	seen := make(map[string]bool, len(p.Steps))
	for i := range p.Steps {
		step := &p.Steps[i]
		if err := step.Validate(); err != nil {
			return err
		}
		if seen[step.Name] {
			return fmt.Errorf("duplicate step name: %s", step.Name)
		}
		seen[step.Name] = true
	}
	return nil
}

// StepNames returns the step names in declaration order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return names
}
