package parser

import (
	"fmt"

	"github.com/harrison/gate/internal/annotate"
	"github.com/harrison/gate/internal/models"
)

// CheckPipeline collects every semantic problem in a parsed pipeline:
// step-level validity, unique step names, known transformers, and patterns
// that compile with the required groups. Returns nil when the pipeline is
// runnable.
func CheckPipeline(p *models.Pipeline) []string {
	var problems []string

	if len(p.Steps) == 0 {
		return []string{"pipeline has no steps"}
	}

	seen := make(map[string]bool, len(p.Steps))
	for i := range p.Steps {
		step := &p.Steps[i]

		if err := step.Validate(); err != nil {
			problems = append(problems, err.Error())
			continue
		}

		if seen[step.Name] {
			problems = append(problems, fmt.Sprintf("duplicate step name: %s", step.Name))
		}
		seen[step.Name] = true

		if !annotate.KnownTransform(step.Transform) {
			problems = append(problems, fmt.Sprintf("step %s: unknown transformer %q", step.Name, step.Transform))
			continue
		}
		if _, err := annotate.ForStep(*step); err != nil {
			problems = append(problems, err.Error())
		}
	}

	return problems
}
