package annotate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrison/gate/internal/models"
)

// Transformer names accepted in pipeline definitions.
const (
	// TransformDiff splits a formatter diff per changed file.
	TransformDiff = "diff"
	// TransformPattern extracts annotations from diagnostic lines via a
	// regexp with named groups (file, line, severity, message).
	TransformPattern = "pattern"
)

// ErrTransform indicates captured output could not be parsed by a
// transformer. The orchestrator recovers by emitting a fallback annotation
// carrying the raw output, so evidence is never dropped.
var ErrTransform = errors.New("output transform failed")

// Transformer derives zero or more annotations from a step's captured output.
type Transformer interface {
	Transform(output string) ([]models.Annotation, error)
}

// ForStep returns the transformer configured for the step, or nil when the
// step declares none. Unknown transformer names are a configuration error.
func ForStep(step models.Step) (Transformer, error) {
	switch step.Transform {
	case "":
		return nil, nil
	case TransformDiff:
		return NewDiffTransformer(SeverityFor(step)), nil
	case TransformPattern:
		return NewPatternTransformer(step.Pattern, SeverityFor(step))
	default:
		return nil, fmt.Errorf("step %s: unknown transformer %q", step.Name, step.Transform)
	}
}

// KnownTransform reports whether name is a recognized transformer name.
func KnownTransform(name string) bool {
	return name == "" || name == TransformDiff || name == TransformPattern
}

// SeverityFor maps a step's class to the severity of its annotations.
func SeverityFor(step models.Step) models.Severity {
	if step.Blocking() {
		return models.SeverityError
	}
	return models.SeverityWarning
}

// DiffTransformer splits a formatter's check diff into one annotation per
// changed file. It understands git-style unified diffs ("diff --git",
// "--- a/x" / "+++ b/x") and rustfmt check output ("Diff in <file> at line N:").
type DiffTransformer struct {
	severity models.Severity
}

// NewDiffTransformer creates a DiffTransformer emitting the given severity.
func NewDiffTransformer(severity models.Severity) *DiffTransformer {
	return &DiffTransformer{severity: severity}
}

// Transform splits the diff per file. Blank output produces no annotations.
// Non-blank output with no recognizable diff headers is a transform error.
func (t *DiffTransformer) Transform(output string) ([]models.Annotation, error) {
	if strings.TrimSpace(output) == "" {
		return nil, nil
	}

	sections := splitDiff(output)
	if len(sections) == 0 {
		return nil, fmt.Errorf("%w: no diff headers in output", ErrTransform)
	}

	// One annotation per file, merging repeated sections for the same path
	// (rustfmt emits one "Diff in" block per hunk).
	var order []string
	byPath := make(map[string][]string)
	for _, sec := range sections {
		if _, seen := byPath[sec.path]; !seen {
			order = append(order, sec.path)
		}
		byPath[sec.path] = append(byPath[sec.path], strings.Join(sec.lines, "\n"))
	}

	annotations := make([]models.Annotation, 0, len(order))
	for _, path := range order {
		text := strings.Join(byPath[path], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		annotations = append(annotations, models.Annotation{
			Severity: t.severity,
			File:     path,
			Message:  EscapeMessage(text),
		})
	}
	return annotations, nil
}

// fileDiff is one per-file section of a larger diff.
type fileDiff struct {
	path  string
	lines []string
}

var rustfmtHeader = regexp.MustCompile(`^Diff in (.+) at line \d+:$`)

// splitDiff scans diff output and groups lines into per-file sections.
// Header lines that only name the file are dropped from the section body;
// "---"/"+++" marker lines are kept because they are part of the diff text.
func splitDiff(output string) []fileDiff {
	var (
		sections []fileDiff
		current  *fileDiff
		sawHunk  bool
	)

	flush := func() {
		if current != nil {
			for len(current.lines) > 0 && current.lines[len(current.lines)-1] == "" {
				current.lines = current.lines[:len(current.lines)-1]
			}
			if len(current.lines) > 0 {
				sections = append(sections, *current)
			}
		}
		current = nil
		sawHunk = false
	}

	lines := strings.Split(output, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			current = &fileDiff{path: gitHeaderPath(line)}

		case rustfmtHeader.MatchString(line):
			flush()
			current = &fileDiff{path: rustfmtHeader.FindStringSubmatch(line)[1]}

		case strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			path := markerPath(lines[i+1], line)
			// Inside a fresh git section the marker pair names the same
			// file; treat it as body rather than a new section.
			if current == nil || sawHunk || current.path != path {
				flush()
				current = &fileDiff{path: path}
			}
			current.lines = append(current.lines, line, lines[i+1])
			i++

		case current != nil:
			if strings.HasPrefix(line, "@@") {
				sawHunk = true
			}
			current.lines = append(current.lines, line)
		}
	}
	flush()
	return sections
}

// gitHeaderPath extracts the path from a "diff --git a/x b/x" header.
func gitHeaderPath(line string) string {
	fields := strings.Fields(strings.TrimPrefix(line, "diff --git "))
	if len(fields) == 0 {
		return ""
	}
	path := fields[len(fields)-1]
	return strings.TrimPrefix(path, "b/")
}

// markerPath extracts the path from a "+++ b/x" marker, falling back to the
// "--- a/x" marker when the new side is /dev/null.
func markerPath(plusLine, minusLine string) string {
	path := firstField(strings.TrimPrefix(plusLine, "+++ "))
	if path == "/dev/null" {
		path = firstField(strings.TrimPrefix(minusLine, "--- "))
		return strings.TrimPrefix(path, "a/")
	}
	return strings.TrimPrefix(path, "b/")
}

// firstField returns text up to the first tab or space ("+++ b/x\t2026-01-02").
func firstField(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

// PatternTransformer extracts annotations from diagnostic lines using a
// regexp with named capture groups. Recognized groups: file, line, severity,
// message. Lines that do not match produce nothing.
type PatternTransformer struct {
	re       *regexp.Regexp
	severity models.Severity
}

// NewPatternTransformer compiles the pattern and validates its groups.
// The pattern must name at least a "message" group.
func NewPatternTransformer(pattern string, severity models.Severity) (*PatternTransformer, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern transformer requires a pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	hasMessage := false
	for _, name := range re.SubexpNames() {
		if name == "message" {
			hasMessage = true
		}
	}
	if !hasMessage {
		return nil, fmt.Errorf("pattern must define a (?P<message>...) group")
	}

	return &PatternTransformer{re: re, severity: severity}, nil
}

// Transform matches each output line against the pattern. Zero matches is
// not an error: a passing tool may emit only chatter.
func (t *PatternTransformer) Transform(output string) ([]models.Annotation, error) {
	var annotations []models.Annotation
	for _, line := range strings.Split(output, "\n") {
		m := t.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		ann := models.Annotation{Severity: t.severity}
		for i, name := range t.re.SubexpNames() {
			if i >= len(m) || m[i] == "" {
				continue
			}
			switch name {
			case "file":
				ann.File = m[i]
			case "line":
				if n, err := strconv.Atoi(m[i]); err == nil {
					ann.Line = n
				}
			case "severity":
				ann.Severity = parseSeverity(m[i], t.severity)
			case "message":
				ann.Message = EscapeMessage(m[i])
			}
		}
		if ann.Message == "" {
			continue
		}
		annotations = append(annotations, ann)
	}
	return annotations, nil
}

// parseSeverity maps a captured severity word onto an annotation severity,
// keeping the step default for anything unrecognized.
func parseSeverity(s string, fallback models.Severity) models.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err", "failure":
		return models.SeverityError
	case "warning", "warn":
		return models.SeverityWarning
	default:
		return fallback
	}
}

// FallbackAnnotation wraps raw step output into a single annotation, used
// when a transformer fails or a failing step yields no derived annotations.
func FallbackAnnotation(step models.Step, output string) models.Annotation {
	return models.Annotation{
		Severity: SeverityFor(step),
		Message:  EscapeMessage(fmt.Sprintf("step %s output:\n%s", step.Name, strings.TrimRight(output, "\n"))),
	}
}
