package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/harrison/gate/internal/fileutil"
	"github.com/harrison/gate/internal/models"
)

// Format represents the format of a pipeline file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatMarkdown represents a Markdown (.md, .markdown) pipeline file
	FormatMarkdown
	// FormatYAML represents a YAML (.yaml, .yml) pipeline file
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Parser is the interface that all pipeline parsers must implement
type Parser interface {
	// Parse reads from an io.Reader and returns a parsed Pipeline
	Parse(r io.Reader) (*models.Pipeline, error)
}

// DetectFormat automatically detects the pipeline format based on file extension
// Supported extensions:
//   - .md, .markdown -> FormatMarkdown
//   - .yaml, .yml -> FormatYAML
//   - all others -> FormatUnknown
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// NewParser creates a new parser instance for the specified format
// Returns an error if the format is unknown or unsupported
func NewParser(format Format) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(), nil
	case FormatYAML:
		return NewYAMLParser(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// ParseFile is a convenience function that:
//  1. Detects if input is a directory (multi-file pipeline) or file
//  2. For directories, calls ParseDirectory to load split pipelines
//  3. For files, auto-detects format, opens it, and parses
//  4. Stores the original file path in pipeline.FilePath
//
// This is the recommended way to load pipeline files from disk.
func ParseFile(path string) (*models.Pipeline, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if info.IsDir() {
		return ParseDirectory(path)
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s (supported: .md, .markdown, .yaml, .yml)", path)
	}

	parser, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pipeline, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	pipeline.FilePath = absPath
	if pipeline.Name == "" {
		pipeline.Name = pipelineNameFromPath(path)
	}
	for i := range pipeline.Steps {
		if pipeline.Steps[i].SourceFile == "" {
			pipeline.Steps[i].SourceFile = absPath
		}
	}

	return pipeline, nil
}

// pipelineNameFromPath derives a pipeline name from a file or directory path.
// "ci/gate-01-style.yaml" becomes "01-style"; a bare "gate.yaml" becomes "gate".
func pipelineNameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if trimmed := strings.TrimPrefix(base, "gate-"); trimmed != "" {
		return trimmed
	}
	return base
}

// pipelineFilePattern matches the split-pipeline naming convention.
var pipelineFilePattern = regexp.MustCompile(`^gate-.*\.(md|markdown|yaml|yml)$`)

// ParseDirectory loads all gate-* pipeline files from a directory, in sorted
// order, and merges them into a single pipeline. Step names must be unique
// across all loaded files.
func ParseDirectory(dirname string) (*models.Pipeline, error) {
	info, err := os.Stat(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirname)
	}

	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if pipelineFilePattern.MatchString(entry.Name()) {
			files = append(files, entry.Name())
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no pipeline files matching gate-*.{md,markdown,yaml,yml} in %s", dirname)
	}

	// Lexical order is execution order; named prefixes (gate-01-..., gate-02-...)
	// give authors explicit control.
	sort.Strings(files)

	var pipelines []*models.Pipeline
	for _, name := range files {
		pipeline, err := parseSingleFile(filepath.Join(dirname, name))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		pipelines = append(pipelines, pipeline)
	}

	merged, err := MergePipelines(pipelines...)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(dirname)
	if err != nil {
		absPath = dirname
	}
	merged.FilePath = absPath
	merged.Name = filepath.Base(absPath)
	return merged, nil
}

// parseSingleFile parses one pipeline file and records per-step provenance.
func parseSingleFile(path string) (*models.Pipeline, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s", path)
	}

	parser, err := NewParser(format)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pipeline, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	pipeline.FilePath = absPath
	if pipeline.Name == "" {
		pipeline.Name = pipelineNameFromPath(path)
	}
	return pipeline, nil
}

// MergePipelines combines multiple pipelines into one, preserving file order
// then step order. Step names must be unique across all inputs.
func MergePipelines(pipelines ...*models.Pipeline) (*models.Pipeline, error) {
	if len(pipelines) == 0 {
		return nil, fmt.Errorf("no pipelines to merge")
	}

	seen := make(map[string]string)
	var mergedSteps []models.Step

	for _, pipeline := range pipelines {
		if pipeline == nil {
			continue
		}
		for _, step := range pipeline.Steps {
			if origin, dup := seen[step.Name]; dup {
				return nil, fmt.Errorf("duplicate step name %q (already defined in %s)", step.Name, origin)
			}
			seen[step.Name] = pipeline.FilePath
			if step.SourceFile == "" {
				step.SourceFile = pipeline.FilePath
			}
			mergedSteps = append(mergedSteps, step)
		}
	}

	result := &models.Pipeline{Steps: mergedSteps}
	for _, pipeline := range pipelines {
		if pipeline != nil {
			result.Name = pipeline.Name
			result.FilePath = pipeline.FilePath
			break
		}
	}
	return result, nil
}

// FilterPipelineFiles accepts file and/or directory paths and returns a
// deduplicated, sorted list of absolute paths matching the gate-* pattern.
//
// Pattern matching rules:
//   - Files MUST start with the "gate-" prefix
//   - Files MUST have extension: .md, .markdown, .yaml, or .yml
//   - Examples: gate-01-style.yaml, gate-02-tests.md, gate-coverage.yml
//
// Directories are scanned recursively. Returns an error if no paths are
// given, a path does not exist, or nothing matches.
func FilterPipelineFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no paths provided")
	}

	found := make(map[string]bool)

	opts := fileutil.ScanOptions{
		Pattern:    "^gate-.*",
		Extensions: []string{".md", ".markdown", ".yaml", ".yml"},
		Recursive:  true,
	}

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %q: %w", path, err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("path %q does not exist", absPath)
			}
			return nil, fmt.Errorf("failed to access path %q: %w", absPath, err)
		}

		if info.IsDir() {
			result, err := fileutil.ScanDirectory(absPath, opts)
			if err != nil {
				return nil, fmt.Errorf("failed to scan directory %q: %w", absPath, err)
			}
			for _, file := range result.Files {
				found[file] = true
			}
		} else {
			if pipelineFilePattern.MatchString(filepath.Base(absPath)) {
				found[absPath] = true
			}
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no pipeline files found matching pattern gate-*.{md,markdown,yaml,yml}")
	}

	result := make([]string, 0, len(found))
	for path := range found {
		result = append(result, path)
	}
	sort.Strings(result)

	return result, nil
}

// DefaultPipelinePath returns the conventional pipeline file in dir,
// checking gate.yaml, gate.yml, gate.md, then gate.markdown.
func DefaultPipelinePath(dir string) (string, error) {
	candidates := []string{"gate.yaml", "gate.yml", "gate.md", "gate.markdown"}
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no pipeline file found in %s (looked for %s)", dir, strings.Join(candidates, ", "))
}
