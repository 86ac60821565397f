// Package display provides terminal UI utilities for displaying progress, warnings, and status messages.
//
// This package centralizes all terminal output formatting, ANSI color codes, and user-facing display logic
// for the gate CLI. It provides three main categories of functionality:
//
// # Progress Indicators
//
// Use ProgressIndicator for multi-step operations:
//
//	progress := display.NewProgressIndicator(os.Stdout, len(files))
//	progress.Start()
//	for _, file := range files {
//	    progress.Step(file)
//	    // ... parse file ...
//	}
//	progress.Complete()
//
// For single file operations:
//
//	display.DisplaySingleFile(os.Stdout, filename)
//
// # Warning Messages
//
// Display warnings with optional components:
//
//	warning := display.Warning{
//	    Title:      "Configuration Issue",
//	    Message:    "Setting 'timeout' must be a duration string",
//	    Files:      []string{".gate/config.yaml"},
//	    Suggestion: "Use a value like '10m' or '90s'",
//	}
//	warning.Display(os.Stderr)
//
// Or use the convenience factory for misnamed pipeline files:
//
//	nearMisses, _ := display.FindNearMissFiles(dir)
//	if len(nearMisses) > 0 {
//	    warning := display.WarnNearMissFiles("Skipped Pipeline-Like Files", nearMisses)
//	    warning.Display(os.Stdout)
//	}
//
// # File Utilities
//
// Check if a filename looks like a misnamed pipeline file (e.g., "gate_01.yaml"):
//
//	if display.IsNearMissFile(filename) {
//	    // Warn the user
//	}
//
// Scan a directory for such files:
//
//	files, err := display.FindNearMissFiles(directory)
//	if err != nil {
//	    // Handle error
//	}
//
// # ANSI Colors
//
// The package uses ANSI escape codes for terminal colors:
//   - Cyan (\x1b[36m) for progress indicators
//   - Green (\x1b[32m) for success messages
//   - Yellow (\x1b[33m) for warnings
//   - Reset (\x1b[0m) after each colored section
//
// All functions accept io.Writer interfaces for testability and flexibility.
//
// # Design Principles
//
//   - Single source of truth for all display logic
//   - Consistent formatting across all commands
//   - Testable via io.Writer abstraction
//   - No global state or side effects
package display
