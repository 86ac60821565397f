package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestHistoryPruneCommand_KeepRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath,
		makeRunReport("11111111-1111-1111-1111-111111111111", "ci", false),
		makeRunReport("22222222-2222-2222-2222-222222222222", "ci", false),
		makeRunReport("33333333-3333-3333-3333-333333333333", "ci", true),
		makeRunReport("44444444-4444-4444-4444-444444444444", "ci", false),
		makeRunReport("55555555-5555-5555-5555-555555555555", "ci", false),
	)

	output, err := executeHistoryCommand(t, "history", "prune",
		"--db-path", dbPath, "--keep-runs", "2", "--keep-days", "0")

	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Deleted 3 runs, 2 remaining.") {
		t.Errorf("Expected prune summary, got: %s", output)
	}

	// The two newest runs survive
	listOutput, err := executeHistoryCommand(t, "history", "list", "--db-path", dbPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(listOutput, "44444444") || !strings.Contains(listOutput, "55555555") {
		t.Errorf("Expected newest runs to survive, got: %s", listOutput)
	}
	if strings.Contains(listOutput, "11111111") {
		t.Errorf("Expected oldest run to be deleted, got: %s", listOutput)
	}
}

func TestHistoryPruneCommand_SingularSummary(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath,
		makeRunReport("11111111-1111-1111-1111-111111111111", "ci", false),
		makeRunReport("22222222-2222-2222-2222-222222222222", "ci", false),
		makeRunReport("33333333-3333-3333-3333-333333333333", "ci", false),
	)

	output, err := executeHistoryCommand(t, "history", "prune",
		"--db-path", dbPath, "--keep-runs", "2", "--keep-days", "0")

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Deleted 1 run, 2 remaining.") {
		t.Errorf("Expected singular prune summary, got: %s", output)
	}
}

func TestHistoryPruneCommand_UnlimitedRetention(t *testing.T) {
	output, err := executeHistoryCommand(t, "history", "prune",
		"--keep-runs", "0", "--keep-days", "0")

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Nothing to prune: retention is unlimited (keep-runs=0, keep-days=0)") {
		t.Errorf("Expected unlimited retention message, got: %s", output)
	}
}

func TestHistoryPruneCommand_ConfigDefaults(t *testing.T) {
	// Without flags the configured retention applies; the defaults keep
	// far more runs than this database holds.
	dbPath := filepath.Join(t.TempDir(), "history.db")
	seedHistory(t, dbPath,
		makeRunReport("11111111-1111-1111-1111-111111111111", "ci", false),
		makeRunReport("22222222-2222-2222-2222-222222222222", "ci", false),
	)

	output, err := executeHistoryCommand(t, "history", "prune", "--db-path", dbPath)

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Deleted 0 runs, 2 remaining.") {
		t.Errorf("Expected no deletions under default retention, got: %s", output)
	}
}

func TestHistoryPruneCommand_NoDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	output, err := executeHistoryCommand(t, "history", "prune",
		"--db-path", dbPath, "--keep-runs", "10", "--keep-days", "0")

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, fmt.Sprintf("No run history found at: %s", dbPath)) {
		t.Errorf("Expected missing database message, got: %s", output)
	}
}
