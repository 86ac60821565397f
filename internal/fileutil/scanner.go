package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ScanOptions configures directory scanning.
type ScanOptions struct {
	// Pattern is a regex matched against filenames with the extension removed
	Pattern string
	// Extensions lists the file extensions to include (e.g., ".md", ".yaml")
	Extensions []string
	// Recursive enables descending into subdirectories
	Recursive bool
	// ExcludeDirs lists directory names to skip (e.g., "target", "node_modules")
	ExcludeDirs []string
	// MaxDepth limits recursion depth (0 = unlimited, 1 = current dir only)
	MaxDepth int
}

// ScanResult holds the outcome of a directory scan.
type ScanResult struct {
	// Files contains the absolute paths of all matched files, sorted
	Files []string
	// Errors contains non-fatal errors encountered while walking
	Errors []error
}

// ScanDirectory walks dir and collects files matching opts. Hidden
// directories are always skipped. Unreadable entries are recorded in
// ScanResult.Errors and the walk continues.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	var nameRegex *regexp.Regexp
	if opts.Pattern != "" {
		nameRegex, err = regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
	}

	wantExt := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		wantExt[strings.ToLower(ext)] = true
	}

	skipDir := make(map[string]bool, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		skipDir[name] = true
	}

	result := &ScanResult{
		Files:  make([]string, 0),
		Errors: make([]error, 0),
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if skipDir[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !opts.Recursive {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 && directoryDepth(dir, path) >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if len(wantExt) > 0 && !wantExt[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if nameRegex != nil {
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			if !nameRegex.MatchString(stem) {
				return nil
			}
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, absPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	// Sorted output keeps discovery deterministic across platforms.
	sort.Strings(result.Files)
	return result, nil
}

func directoryDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
