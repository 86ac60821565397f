package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/gate/internal/models"
)

// MarkdownParser parses Markdown pipeline files.
//
// A pipeline file declares each step as a level-2 heading, with the command
// in the first fenced code block of the section and settings in a bullet
// list. Pipeline-level settings go in YAML frontmatter:
//
//	---
//	name: ci
//	default_class: blocking
//	---
//
//	## Step: fmt
//
//	```sh
//	cargo fmt --check
//	```
//
//	- Class: blocking
//	- Transform: diff
//
// Regexp-valued bullets (Pattern) should be wrapped in backticks so markdown
// emphasis characters survive parsing.
type MarkdownParser struct {
	markdown goldmark.Markdown
}

// NewMarkdownParser creates a new Markdown pipeline parser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

// frontmatterYAML mirrors the pipeline-level keys of the YAML format.
type frontmatterYAML struct {
	Name         string `yaml:"name"`
	DefaultClass string `yaml:"default_class"`
}

var stepHeading = regexp.MustCompile(`^Step:\s+(.+)$`)

// Parse reads a Markdown pipeline definition.
func (p *MarkdownParser) Parse(r io.Reader) (*models.Pipeline, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	pipeline := &models.Pipeline{}
	var defaultClass models.Class

	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		var fm frontmatterYAML
		if err := yaml.Unmarshal(frontmatter, &fm); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		pipeline.Name = fm.Name
		defaultClass, err = classFromString(fm.DefaultClass)
		if err != nil {
			return nil, fmt.Errorf("frontmatter default_class: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))

	steps, err := p.extractSteps(doc, content)
	if err != nil {
		return nil, err
	}

	for i := range steps {
		if steps[i].Class == "" {
			steps[i].Class = defaultClass
		}
	}
	pipeline.Steps = steps
	return pipeline, nil
}

// extractSteps walks the document's top-level nodes. A level-2 "Step:"
// heading opens a section; the first fenced code block in the section is the
// command and bullet lists carry the step's settings. Any other level-2
// heading closes the section.
func (p *MarkdownParser) extractSteps(doc ast.Node, source []byte) ([]models.Step, error) {
	var steps []models.Step
	var current *models.Step

	flush := func() {
		if current != nil {
			steps = append(steps, *current)
			current = nil
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level != 2 {
				continue
			}
			flush()
			if m := stepHeading.FindStringSubmatch(nodeText(node, source)); len(m) == 2 {
				current = &models.Step{Name: strings.TrimSpace(m[1])}
			}

		case *ast.FencedCodeBlock:
			if current != nil && current.Command == "" {
				current.Command = strings.TrimRight(fencedText(node, source), "\n")
			}

		case *ast.List:
			if current != nil {
				if err := applyListSettings(current, node, source); err != nil {
					return nil, err
				}
			}
		}
	}
	flush()

	return steps, nil
}

// applyListSettings reads "- Key: value" bullets into the step. Unknown keys
// are ignored so step sections can carry prose checklists too.
func applyListSettings(step *models.Step, list *ast.List, source []byte) error {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		line := strings.TrimSpace(nodeText(item, source))
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "class":
			class, err := classFromString(value)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.Name, err)
			}
			step.Class = class
		case "transform":
			step.Transform = value
		case "pattern":
			step.Pattern = value
		case "env":
			k, v, ok := strings.Cut(value, "=")
			if !ok {
				return fmt.Errorf("step %s: env entry %q is not KEY=value", step.Name, value)
			}
			if step.Env == nil {
				step.Env = make(map[string]string)
			}
			step.Env[strings.TrimSpace(k)] = v
		}
	}
	return nil
}

// nodeText collects the plain text of a node and its descendants, including
// text inside emphasis and inline code spans.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// fencedText returns the raw body of a fenced code block.
func fencedText(n *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// extractFrontmatter splits YAML frontmatter (between --- delimiters at the
// top of the file) from the markdown body. Returns the original content and
// nil when no frontmatter is present.
func extractFrontmatter(content []byte) (body, frontmatter []byte) {
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) == 0 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter = bytes.Join(lines[1:i], []byte("\n"))
			body = bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	return content, nil
}
