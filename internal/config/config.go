package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/gate/internal/annotate"
)

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled turns on recording of run reports to the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database file
	DBPath string `yaml:"db_path"`

	// KeepRuns is the maximum number of runs to keep (0 = unlimited)
	KeepRuns int `yaml:"keep_runs"`

	// KeepDays is the number of days to keep recorded runs (0 = unlimited)
	KeepDays int `yaml:"keep_days"`
}

// Config represents gate configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs are written
	LogDir string `yaml:"log_dir"`

	// Timeout is the maximum execution time per step (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`

	// Annotations selects the annotation sink (github, text, off)
	Annotations string `yaml:"annotations"`

	// WorkDir is the directory step commands run in ("" = current directory)
	WorkDir string `yaml:"workdir"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		LogDir:      ".gate/logs",
		Timeout:     0, // No per-step limit
		Annotations: annotate.ModeGitHub,
		WorkDir:     "",
		History: HistoryConfig{
			Enabled:  false,
			DBPath:   ".gate/history.db",
			KeepRuns: 100,
			KeepDays: 90,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, return defaults (not an error)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlConfig struct {
		LogLevel    string        `yaml:"log_level"`
		LogDir      string        `yaml:"log_dir"`
		Timeout     string        `yaml:"timeout"`
		Annotations string        `yaml:"annotations"`
		WorkDir     string        `yaml:"workdir"`
		History     HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-empty values from the file over the defaults
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.Annotations != "" {
		cfg.Annotations = yamlCfg.Annotations
	}
	if yamlCfg.WorkDir != "" {
		cfg.WorkDir = yamlCfg.WorkDir
	}

	// Merge the history section field by field. A second unmarshal into a
	// raw map tells us which keys were actually present, so an explicit
	// "enabled: false" or "keep_runs: 0" is not mistaken for an omission.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			history := yamlCfg.History
			historyMap, _ := historySection.(map[string]interface{})

			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = history.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = history.DBPath
			}
			if _, exists := historyMap["keep_runs"]; exists {
				cfg.History.KeepRuns = history.KeepRuns
			}
			if _, exists := historyMap["keep_days"]; exists {
				cfg.History.KeepDays = history.KeepDays
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .gate/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".gate", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(timeout *time.Duration, logDir *string, annotations *string, workDir *string, record *bool) {
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if annotations != nil {
		c.Annotations = *annotations
	}
	if workDir != nil {
		c.WorkDir = *workDir
	}
	if record != nil {
		c.History.Enabled = *record
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout can be 0 (no limit) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if !annotate.ValidMode(c.Annotations) {
		return fmt.Errorf("invalid annotations mode %q, must be one of: %s, %s, %s",
			c.Annotations, annotate.ModeGitHub, annotate.ModeText, annotate.ModeOff)
	}

	if c.WorkDir != "" {
		info, err := os.Stat(c.WorkDir)
		if err != nil {
			return fmt.Errorf("workdir %q is not accessible: %w", c.WorkDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("workdir %q is not a directory", c.WorkDir)
		}
	}

	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path cannot be empty when history is enabled")
		}
		if c.History.KeepRuns < 0 {
			return fmt.Errorf("history.keep_runs must be >= 0, got %d", c.History.KeepRuns)
		}
		if c.History.KeepDays < 0 {
			return fmt.Errorf("history.keep_days must be >= 0, got %d", c.History.KeepDays)
		}
	}

	return nil
}
