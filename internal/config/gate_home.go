package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetGateHome returns the .gate directory for the current checkout
// Priority order:
//  1. GATE_HOME environment variable (if set)
//  2. Checkout root (detected by walking up for a .gate dir, a gate
//     pipeline file, or a .git entry)
//  3. Current working directory (fallback)
//
// The directory is created if it doesn't exist. The returned path only
// decides where logs, locks, and history live; it never influences which
// steps run or how their results are judged.
func GetGateHome() (string, error) {
	if home := os.Getenv("GATE_HOME"); home != "" {
		return home, nil
	}

	root, err := findCheckoutRoot()
	if err != nil || root == "" {
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
	}

	gateHome := filepath.Join(root, ".gate")
	if err := os.MkdirAll(gateHome, 0755); err != nil {
		return "", fmt.Errorf("create gate home directory: %w", err)
	}
	return gateHome, nil
}

// findCheckoutRoot walks up from the working directory looking for the
// closest directory that looks like a checkout root.
func findCheckoutRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	current := cwd
	for {
		// An existing .gate directory wins, then a conventional pipeline
		// file, then a version control root.
		if info, err := os.Stat(filepath.Join(current, ".gate")); err == nil && info.IsDir() {
			return current, nil
		}
		if hasPipelineFile(current) {
			return current, nil
		}
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("checkout root not found (looking for .gate, a gate pipeline file, or .git)")
}

func hasPipelineFile(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == "gate.yaml" || name == "gate.yml" || name == "gate.md" || name == "gate.markdown" {
			return true
		}
		if strings.HasPrefix(name, "gate-") {
			switch filepath.Ext(name) {
			case ".yaml", ".yml", ".md", ".markdown":
				return true
			}
		}
	}
	return false
}

// GetHistoryDBPath returns the absolute path to the history database
// Always returns: $GATE_HOME/history.db
func GetHistoryDBPath() (string, error) {
	home, err := GetGateHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}

// GetLockPath returns the path of the run lock file
// Always returns: $GATE_HOME/lock
func GetLockPath() (string, error) {
	home, err := GetGateHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "lock"), nil
}
