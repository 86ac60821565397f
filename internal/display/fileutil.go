package display

import (
	"path/filepath"
	"strings"

	"github.com/harrison/gate/internal/fileutil"
)

// IsNearMissFile checks whether filename resembles a pipeline file that
// discovery would nevertheless skip. Discovery accepts "gate" or "gate-*"
// stems (lowercase) with a .md/.markdown/.yaml/.yml extension; this flags
// the three common ways to miss it:
//  1. Wrong case: "Gate-01.md", "GATE.yaml"
//  2. Wrong separator: "gate_01.yaml", "gate.01.yaml"
//  3. Wrong extension: "gate-01.txt", "gate.json"
func IsNearMissFile(filename string) bool {
	// Reject control characters outright
	if strings.ContainsAny(filename, "\n\x00") {
		return false
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	if stem == "" {
		return false
	}

	lowerExt := strings.ToLower(ext)
	lowerStem := strings.ToLower(stem)
	validExt := lowerExt == ".md" || lowerExt == ".markdown" || lowerExt == ".yaml" || lowerExt == ".yml"

	// Exact discovery matches are not near misses.
	if validExt && (stem == "gate" || strings.HasPrefix(stem, "gate-")) {
		return false
	}

	// Valid extension but the stem misses on case or separator.
	if validExt {
		if lowerStem == "gate" {
			return true
		}
		switch {
		case strings.HasPrefix(lowerStem, "gate-"),
			strings.HasPrefix(lowerStem, "gate_"),
			strings.HasPrefix(lowerStem, "gate."):
			return true
		}
		return false
	}

	// Right stem, wrong extension. Extensionless files (directories,
	// binaries) are left alone.
	if ext == "" {
		return false
	}
	return lowerStem == "gate" || strings.HasPrefix(lowerStem, "gate-")
}

// FindNearMissFiles scans a directory and returns basenames of files that
// look like misnamed pipeline files. Only scans the immediate directory
// (not recursive). Returns an error if path doesn't exist or is not a
// directory.
func FindNearMissFiles(dirPath string) ([]string, error) {
	// Cast a wide net over gate-ish stems, then let IsNearMissFile decide.
	opts := fileutil.ScanOptions{
		Pattern:   `(?i)^gate([-_.].*)?$`,
		Recursive: false,
	}

	result, err := fileutil.ScanDirectory(dirPath, opts)
	if err != nil {
		return nil, err
	}

	nearMisses := make([]string, 0, len(result.Files))
	for _, absPath := range result.Files {
		basename := filepath.Base(absPath)
		if IsNearMissFile(basename) {
			nearMisses = append(nearMisses, basename)
		}
	}

	return nearMisses, nil
}
