package parser

import (
	"strings"
	"testing"

	"github.com/harrison/gate/internal/models"
)

func TestCheckPipelineValid(t *testing.T) {
	p := &models.Pipeline{
		Name: "ci",
		Steps: []models.Step{
			{Name: "fmt", Command: "cargo fmt --check", Class: models.ClassBlocking, Transform: "diff"},
			{Name: "clippy", Command: "cargo clippy", Class: models.ClassBlocking},
			{Name: "coverage", Command: "cargo tarpaulin", Class: models.ClassAdvisory},
		},
	}

	if problems := CheckPipeline(p); len(problems) != 0 {
		t.Errorf("CheckPipeline() = %v, want no problems", problems)
	}
}

func TestCheckPipelineEmpty(t *testing.T) {
	problems := CheckPipeline(&models.Pipeline{Name: "ci"})
	if len(problems) != 1 {
		t.Fatalf("CheckPipeline() = %v, want exactly one problem", problems)
	}
	if !strings.Contains(problems[0], "no steps") {
		t.Errorf("CheckPipeline() = %q, want no-steps problem", problems[0])
	}
}

func TestCheckPipelineAccumulatesProblems(t *testing.T) {
	p := &models.Pipeline{
		Name: "ci",
		Steps: []models.Step{
			{Name: "fmt", Command: "cargo fmt --check"},
			{Name: "", Command: "cargo clippy"},
			{Name: "fmt", Command: "cargo test"},
			{Name: "audit", Command: "cargo audit", Transform: "mystery"},
		},
	}

	problems := CheckPipeline(p)
	if len(problems) != 3 {
		t.Fatalf("CheckPipeline() found %d problems, want 3: %v", len(problems), problems)
	}

	wantFragments := []string{"name", "duplicate step name: fmt", `unknown transformer "mystery"`}
	for i, fragment := range wantFragments {
		if !strings.Contains(problems[i], fragment) {
			t.Errorf("problems[%d] = %q, want fragment %q", i, problems[i], fragment)
		}
	}
}

func TestCheckPipelineMissingCommand(t *testing.T) {
	p := &models.Pipeline{
		Steps: []models.Step{{Name: "fmt"}},
	}

	problems := CheckPipeline(p)
	if len(problems) != 1 {
		t.Fatalf("CheckPipeline() = %v, want one problem", problems)
	}
	if !strings.Contains(problems[0], "command") {
		t.Errorf("CheckPipeline() = %q, want missing-command problem", problems[0])
	}
}

func TestCheckPipelinePatternProblems(t *testing.T) {
	t.Run("pattern that does not compile", func(t *testing.T) {
		p := &models.Pipeline{
			Steps: []models.Step{
				{Name: "clippy", Command: "cargo clippy", Transform: "pattern", Pattern: "(unclosed"},
			},
		}
		problems := CheckPipeline(p)
		if len(problems) != 1 {
			t.Fatalf("CheckPipeline() = %v, want one problem", problems)
		}
	})

	t.Run("pattern without message group", func(t *testing.T) {
		p := &models.Pipeline{
			Steps: []models.Step{
				{Name: "clippy", Command: "cargo clippy", Transform: "pattern", Pattern: `^(?P<file>\S+)$`},
			},
		}
		problems := CheckPipeline(p)
		if len(problems) != 1 {
			t.Fatalf("CheckPipeline() = %v, want one problem", problems)
		}
		if !strings.Contains(problems[0], "message") {
			t.Errorf("CheckPipeline() = %q, want message-group problem", problems[0])
		}
	})

	t.Run("valid pattern passes", func(t *testing.T) {
		p := &models.Pipeline{
			Steps: []models.Step{
				{
					Name:      "clippy",
					Command:   "cargo clippy",
					Transform: "pattern",
					Pattern:   `^(?P<file>[^:]+):(?P<line>\d+): (?P<message>.+)$`,
				},
			},
		}
		if problems := CheckPipeline(p); len(problems) != 0 {
			t.Errorf("CheckPipeline() = %v, want no problems", problems)
		}
	})
}

func TestCheckPipelineInvalidClass(t *testing.T) {
	p := &models.Pipeline{
		Steps: []models.Step{
			{Name: "fmt", Command: "cargo fmt", Class: models.Class("critical")},
		},
	}

	problems := CheckPipeline(p)
	if len(problems) != 1 {
		t.Fatalf("CheckPipeline() = %v, want one problem", problems)
	}
	if !strings.Contains(problems[0], "class") {
		t.Errorf("CheckPipeline() = %q, want class problem", problems[0])
	}
}
