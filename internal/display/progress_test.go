package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewProgressIndicator(t *testing.T) {
	tests := []struct {
		name       string
		totalFiles int
	}{
		{
			name:       "valid total files",
			totalFiles: 3,
		},
		{
			name:       "single file",
			totalFiles: 1,
		},
		{
			name:       "many files",
			totalFiles: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			pi := NewProgressIndicator(&buf, tt.totalFiles)

			if pi == nil {
				t.Error("NewProgressIndicator() returned nil")
			}
			if pi.totalFiles != tt.totalFiles {
				t.Errorf("totalFiles = %d, want %d", pi.totalFiles, tt.totalFiles)
			}
			if pi.current != 0 {
				t.Errorf("current = %d, want 0", pi.current)
			}
		})
	}
}

func TestProgressIndicator_Start(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, 3)
	pi.Start()

	got := buf.String()
	want := "Loading pipeline files:\n"
	if got != want {
		t.Errorf("Start() output = %q, want %q", got, want)
	}
}

func TestProgressIndicator_Step(t *testing.T) {
	tests := []struct {
		name       string
		totalFiles int
		filenames  []string
		wantFormat string
	}{
		{
			name:       "first step shows [1/3] format",
			totalFiles: 3,
			filenames:  []string{"gate-01-style.yaml"},
			wantFormat: "  [1/3] gate-01-style.yaml",
		},
		{
			name:       "second step shows [2/3] format",
			totalFiles: 3,
			filenames:  []string{"gate-01-style.yaml", "gate-02-tests.yaml"},
			wantFormat: "  [2/3] gate-02-tests.yaml",
		},
		{
			name:       "third step shows [3/3] format",
			totalFiles: 3,
			filenames:  []string{"gate-01-style.yaml", "gate-02-tests.yaml", "gate-03-coverage.md"},
			wantFormat: "  [3/3] gate-03-coverage.md",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			pi := NewProgressIndicator(&buf, tt.totalFiles)

			for _, f := range tt.filenames {
				pi.Step(f)
			}

			output := buf.String()
			if !strings.Contains(output, tt.wantFormat) {
				t.Errorf("Step() output = %q, want substring %q", output, tt.wantFormat)
			}

			// Steps are wrapped in cyan
			if !strings.Contains(output, "\x1b[36m") {
				t.Error("Expected cyan ANSI color code in step output")
			}
			if !strings.Contains(output, "\x1b[0m") {
				t.Error("Expected ANSI reset code in step output")
			}
		})
	}
}

func TestProgressIndicator_StepShowsBasenameOnly(t *testing.T) {
	var buf bytes.Buffer
	pi := NewProgressIndicator(&buf, 1)

	pi.Step("/home/user/project/ci/gate-01-style.yaml")

	output := buf.String()

	if !strings.Contains(output, "gate-01-style.yaml") {
		t.Errorf("Expected basename in output, got %q", output)
	}
	if strings.Contains(output, "/home/user/project") {
		t.Errorf("Expected directory to be stripped, got %q", output)
	}
}

func TestProgressIndicator_Complete(t *testing.T) {
	tests := []struct {
		name       string
		totalFiles int
		wantText   string
	}{
		{
			name:       "multiple files",
			totalFiles: 4,
			wantText:   "Loaded 4 pipeline files",
		},
		{
			name:       "single file",
			totalFiles: 1,
			wantText:   "Loaded 1 pipeline file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			pi := NewProgressIndicator(&buf, tt.totalFiles)
			pi.Complete()

			output := buf.String()
			if !strings.Contains(output, tt.wantText) {
				t.Errorf("Complete() output = %q, want substring %q", output, tt.wantText)
			}

			// Checkmark is wrapped in green
			if !strings.Contains(output, "\x1b[32m✓\x1b[0m") {
				t.Error("Expected green checkmark in completion output")
			}
		})
	}
}

func TestProgressIndicator_FullWorkflow(t *testing.T) {
	var buf bytes.Buffer
	files := []string{
		"ci/gate-01-style.yaml",
		"ci/gate-02-tests.yaml",
		"ci/gate-03-coverage.md",
	}

	pi := NewProgressIndicator(&buf, len(files))
	pi.Start()
	for _, f := range files {
		pi.Step(f)
	}
	pi.Complete()

	output := buf.String()

	expected := []string{
		"Loading pipeline files:",
		"[1/3] gate-01-style.yaml",
		"[2/3] gate-02-tests.yaml",
		"[3/3] gate-03-coverage.md",
		"Loaded 3 pipeline files",
	}

	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in workflow output, got: %s", want, output)
		}
	}

	// Header comes before steps, completion comes last
	headerIdx := strings.Index(output, "Loading pipeline files:")
	completeIdx := strings.Index(output, "Loaded 3 pipeline files")
	if headerIdx > completeIdx {
		t.Error("Expected header before completion message")
	}
}

func TestDisplaySingleFile(t *testing.T) {
	var buf bytes.Buffer
	DisplaySingleFile(&buf, "gate.yaml")

	got := buf.String()
	want := "Loading pipeline from gate.yaml...\n"
	if got != want {
		t.Errorf("DisplaySingleFile() output = %q, want %q", got, want)
	}
}
