// Package fileutil provides directory scanning and filename filtering
// utilities shared across gate.
//
// All pipeline file discovery goes through this package rather than
// ad-hoc filepath.Walk calls, so the matching rules (extension set,
// name pattern, hidden-directory exclusion) stay in one place.
//
// # Main Components
//
// ScanOptions configures a scan:
//   - Pattern: regex matched against filenames with the extension removed
//   - Extensions: file extensions to include (case-insensitive)
//   - Recursive: whether to descend into subdirectories
//   - ExcludeDirs: directory names to skip (e.g., "target", "node_modules")
//   - MaxDepth: recursion depth limit (0 = unlimited)
//
// ScanResult carries the matched files (absolute paths, sorted) plus any
// non-fatal errors hit along the way. Permission failures on a
// subdirectory do not abort the scan; they are collected in
// ScanResult.Errors so callers can surface them as warnings.
//
// # Usage
//
// Discovering split pipeline files in a CI directory:
//
//	result, err := fileutil.ScanDirectory("ci", fileutil.ScanOptions{
//	    Pattern:    "^gate-.*",
//	    Extensions: []string{".md", ".markdown", ".yaml", ".yml"},
//	    Recursive:  true,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, file := range result.Files {
//	    fmt.Println(file)
//	}
//
// Hidden directories (".git", ".cache", ...) are always skipped.
// Extensions are normalized to lowercase before matching, so "Gate.MD"
// and "gate.md" behave identically.
package fileutil
