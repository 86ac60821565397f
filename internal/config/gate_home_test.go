package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestGetGateHomeWithEnvVar tests GATE_HOME env var takes precedence
func TestGetGateHomeWithEnvVar(t *testing.T) {
	customHome := t.TempDir()
	t.Setenv("GATE_HOME", customHome)

	home, err := GetGateHome()
	if err != nil {
		t.Fatalf("GetGateHome() error = %v", err)
	}

	if home != customHome {
		t.Errorf("GetGateHome() = %q, want %q", home, customHome)
	}
}

// TestGetGateHomeFindsPipelineRoot tests detection via a gate pipeline file
func TestGetGateHomeFindsPipelineRoot(t *testing.T) {
	t.Setenv("GATE_HOME", "")

	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "gate.yaml"), []byte("steps: []\n"), 0644); err != nil {
		t.Fatalf("failed to create pipeline file: %v", err)
	}
	nested := filepath.Join(tmpDir, "src", "deep")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	defer os.Chdir(oldWd)
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	home, err := GetGateHome()
	if err != nil {
		t.Fatalf("GetGateHome() error = %v", err)
	}

	// Temp dirs may sit behind symlinks, so compare resolved paths.
	wantRoot, _ := filepath.EvalSymlinks(tmpDir)
	gotRoot, _ := filepath.EvalSymlinks(filepath.Dir(home))
	if gotRoot != wantRoot {
		t.Errorf("GetGateHome() resolved root %q, want %q", gotRoot, wantRoot)
	}
	if filepath.Base(home) != ".gate" {
		t.Errorf("GetGateHome() = %q, want a .gate directory", home)
	}
	if _, err := os.Stat(home); os.IsNotExist(err) {
		t.Errorf("Directory not created: %q", home)
	}
}

// TestGetGateHomeFindsGitRoot tests detection via a .git entry
func TestGetGateHomeFindsGitRoot(t *testing.T) {
	t.Setenv("GATE_HOME", "")

	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("failed to create .git dir: %v", err)
	}
	nested := filepath.Join(tmpDir, "crates", "core")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	defer os.Chdir(oldWd)
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	home, err := GetGateHome()
	if err != nil {
		t.Fatalf("GetGateHome() error = %v", err)
	}

	wantRoot, _ := filepath.EvalSymlinks(tmpDir)
	gotRoot, _ := filepath.EvalSymlinks(filepath.Dir(home))
	if gotRoot != wantRoot {
		t.Errorf("GetGateHome() resolved root %q, want %q", gotRoot, wantRoot)
	}
}

// TestGetGateHomeExistingGateDirWins tests that an existing .gate directory
// closer to the working directory takes precedence over outer markers
func TestGetGateHomeExistingGateDirWins(t *testing.T) {
	t.Setenv("GATE_HOME", "")

	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("failed to create .git dir: %v", err)
	}
	inner := filepath.Join(tmpDir, "service")
	if err := os.MkdirAll(filepath.Join(inner, ".gate"), 0755); err != nil {
		t.Fatalf("failed to create inner .gate dir: %v", err)
	}

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	defer os.Chdir(oldWd)
	if err := os.Chdir(inner); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}

	home, err := GetGateHome()
	if err != nil {
		t.Fatalf("GetGateHome() error = %v", err)
	}

	wantRoot, _ := filepath.EvalSymlinks(inner)
	gotRoot, _ := filepath.EvalSymlinks(filepath.Dir(home))
	if gotRoot != wantRoot {
		t.Errorf("GetGateHome() resolved root %q, want inner root %q", gotRoot, wantRoot)
	}
}

// TestGetHistoryDBPath tests the history database path convention
func TestGetHistoryDBPath(t *testing.T) {
	customHome := t.TempDir()
	t.Setenv("GATE_HOME", customHome)

	path, err := GetHistoryDBPath()
	if err != nil {
		t.Fatalf("GetHistoryDBPath() error = %v", err)
	}

	want := filepath.Join(customHome, "history.db")
	if path != want {
		t.Errorf("GetHistoryDBPath() = %q, want %q", path, want)
	}
}

// TestGetLockPath tests the run lock path convention
func TestGetLockPath(t *testing.T) {
	customHome := t.TempDir()
	t.Setenv("GATE_HOME", customHome)

	path, err := GetLockPath()
	if err != nil {
		t.Fatalf("GetLockPath() error = %v", err)
	}

	want := filepath.Join(customHome, "lock")
	if path != want {
		t.Errorf("GetLockPath() = %q, want %q", path, want)
	}
}
