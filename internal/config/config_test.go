package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogDir != ".gate/logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, ".gate/logs")
	}
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout)
	}
	if cfg.Annotations != "github" {
		t.Errorf("Annotations = %q, want %q", cfg.Annotations, "github")
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.DBPath != ".gate/history.db" {
		t.Errorf("History.DBPath = %q, want %q", cfg.History.DBPath, ".gate/history.db")
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: debug
log_dir: /tmp/gate-logs
timeout: 30m
annotations: text
history:
  enabled: true
  db_path: /tmp/gate-history.db
  keep_runs: 50
  keep_days: 14
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogDir != "/tmp/gate-logs" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/tmp/gate-logs")
	}
	if cfg.Timeout != 30*time.Minute {
		t.Errorf("Timeout = %v, want 30m", cfg.Timeout)
	}
	if cfg.Annotations != "text" {
		t.Errorf("Annotations = %q, want %q", cfg.Annotations, "text")
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.DBPath != "/tmp/gate-history.db" {
		t.Errorf("History.DBPath = %q, want %q", cfg.History.DBPath, "/tmp/gate-history.db")
	}
	if cfg.History.KeepRuns != 50 {
		t.Errorf("History.KeepRuns = %d, want 50", cfg.History.KeepRuns)
	}
	if cfg.History.KeepDays != 14 {
		t.Errorf("History.KeepDays = %d, want 14", cfg.History.KeepDays)
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q (default)", cfg.LogLevel, "info")
	}
	if cfg.Annotations != "github" {
		t.Errorf("Annotations = %q, want %q (default)", cfg.Annotations, "github")
	}
}

// TestLoadConfigInvalidYAML tests error handling for malformed YAML
func TestLoadConfigInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
log_level: debug
timeout: [this is not valid
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Error("LoadConfig() expected error for invalid YAML, got nil")
	}
}

// TestLoadConfigPartialValues tests that partial config merges with defaults
func TestLoadConfigPartialValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `log_level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "warn")
	}
	// Unset values keep their defaults
	if cfg.LogDir != ".gate/logs" {
		t.Errorf("LogDir = %q, want default %q", cfg.LogDir, ".gate/logs")
	}
	if cfg.Annotations != "github" {
		t.Errorf("Annotations = %q, want default %q", cfg.Annotations, "github")
	}
	if cfg.History.DBPath != ".gate/history.db" {
		t.Errorf("History.DBPath = %q, want default %q", cfg.History.DBPath, ".gate/history.db")
	}
}

// TestLoadConfigHistoryMerge tests field-by-field merging of the history section
func TestLoadConfigHistoryMerge(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// keep_runs: 0 is explicit (unlimited), db_path stays default
	configContent := `history:
  enabled: true
  keep_runs: 0
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.KeepRuns != 0 {
		t.Errorf("History.KeepRuns = %d, want explicit 0", cfg.History.KeepRuns)
	}
	if cfg.History.DBPath != ".gate/history.db" {
		t.Errorf("History.DBPath = %q, want default %q", cfg.History.DBPath, ".gate/history.db")
	}
	if cfg.History.KeepDays != 90 {
		t.Errorf("History.KeepDays = %d, want default 90", cfg.History.KeepDays)
	}
}

// TestLoadConfigFromDir tests loading from the .gate directory convention
func TestLoadConfigFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	gateDir := filepath.Join(tmpDir, ".gate")
	if err := os.MkdirAll(gateDir, 0755); err != nil {
		t.Fatalf("failed to create .gate dir: %v", err)
	}

	configContent := `log_level: error
`
	if err := os.WriteFile(filepath.Join(gateDir, "config.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfigFromDir(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfigFromDir() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "error")
	}
}

// TestLoadConfigFromDirNotExists tests defaults when no .gate directory exists
func TestLoadConfigFromDirNotExists(t *testing.T) {
	cfg, err := LoadConfigFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigFromDir() should not error on missing config, got: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "info")
	}
}

// TestMergeWithFlags tests that flag values override config values
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	timeout := 5 * time.Minute
	logDir := "/custom/logs"
	annotations := "off"
	workDir := "/src/project"
	record := true

	cfg.MergeWithFlags(&timeout, &logDir, &annotations, &workDir, &record)

	if cfg.Timeout != timeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, timeout)
	}
	if cfg.LogDir != logDir {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, logDir)
	}
	if cfg.Annotations != annotations {
		t.Errorf("Annotations = %q, want %q", cfg.Annotations, annotations)
	}
	if cfg.WorkDir != workDir {
		t.Errorf("WorkDir = %q, want %q", cfg.WorkDir, workDir)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true after --record")
	}
}

// TestMergeWithFlagsPartial tests that only provided flags override
func TestMergeWithFlagsPartial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogDir = "/from/config"

	annotations := "text"
	cfg.MergeWithFlags(nil, nil, &annotations, nil, nil)

	if cfg.Annotations != "text" {
		t.Errorf("Annotations = %q, want %q", cfg.Annotations, "text")
	}
	if cfg.LogDir != "/from/config" {
		t.Errorf("LogDir = %q, want unchanged %q", cfg.LogDir, "/from/config")
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled changed without a flag")
	}
}

// TestMergeWithFlagsNil tests that all-nil flags leave config untouched
func TestMergeWithFlagsNil(t *testing.T) {
	cfg := DefaultConfig()
	want := *cfg

	cfg.MergeWithFlags(nil, nil, nil, nil, nil)

	if *cfg != want {
		t.Errorf("MergeWithFlags(nil...) changed config: got %+v, want %+v", *cfg, want)
	}
}

// TestTimeoutParsing tests the duration string formats accepted in YAML
func TestTimeoutParsing(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "seconds", value: "45s", want: 45 * time.Second},
		{name: "minutes", value: "10m", want: 10 * time.Minute},
		{name: "hours", value: "2h", want: 2 * time.Hour},
		{name: "compound", value: "1h30m", want: 90 * time.Minute},
		{name: "invalid", value: "ten minutes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			content := "timeout: " + tt.value + "\n"
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg, err := LoadConfig(configPath)
			if tt.wantErr {
				if err == nil {
					t.Error("LoadConfig() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if cfg.Timeout != tt.want {
				t.Errorf("Timeout = %v, want %v", cfg.Timeout, tt.want)
			}
		})
	}
}

// TestConfigValidation tests the Validate method
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "log_level",
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Timeout = -1 * time.Second },
			wantErr: "timeout",
		},
		{
			name:    "invalid annotations mode",
			modify:  func(c *Config) { c.Annotations = "junit" },
			wantErr: "annotations",
		},
		{
			name:    "nonexistent workdir",
			modify:  func(c *Config) { c.WorkDir = "/nonexistent/gate/workdir" },
			wantErr: "workdir",
		},
		{
			name: "history enabled without db path",
			modify: func(c *Config) {
				c.History.Enabled = true
				c.History.DBPath = ""
			},
			wantErr: "db_path",
		},
		{
			name: "negative keep_runs",
			modify: func(c *Config) {
				c.History.Enabled = true
				c.History.KeepRuns = -1
			},
			wantErr: "keep_runs",
		},
		{
			name: "negative keep_days",
			modify: func(c *Config) {
				c.History.Enabled = true
				c.History.KeepDays = -5
			},
			wantErr: "keep_days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// TestEmptyConfigFile tests that an empty file yields defaults
func TestEmptyConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "info")
	}
}

// TestConfigWithComments tests that YAML comments are tolerated
func TestConfigWithComments(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `# Gate configuration
log_level: debug # verbose output
# timeout applies per step
timeout: 15m
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Timeout != 15*time.Minute {
		t.Errorf("Timeout = %v, want 15m", cfg.Timeout)
	}
}

// TestValidLogLevels tests every accepted log level
func TestValidLogLevels(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		cfg := DefaultConfig()
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() rejected valid log level %q: %v", level, err)
		}
	}
}

// TestInvalidLogLevels tests rejected log levels
func TestInvalidLogLevels(t *testing.T) {
	for _, level := range []string{"", "verbose", "INFO", "warning"} {
		cfg := DefaultConfig()
		cfg.LogLevel = level
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate() accepted invalid log level %q", level)
		}
	}
}
