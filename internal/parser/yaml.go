package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/harrison/gate/internal/models"
)

// YAMLParser parses YAML pipeline files
type YAMLParser struct{}

// NewYAMLParser creates a new YAML pipeline parser
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// pipelineYAML is the on-disk shape of a YAML pipeline file
type pipelineYAML struct {
	Name         string     `yaml:"name"`
	DefaultClass string     `yaml:"default_class"`
	Steps        []stepYAML `yaml:"steps"`
}

type stepYAML struct {
	Name      string            `yaml:"name"`
	Command   string            `yaml:"command"`
	Class     string            `yaml:"class"`
	Transform string            `yaml:"transform"`
	Pattern   string            `yaml:"pattern"`
	Env       map[string]string `yaml:"env"`
}

// Parse reads a YAML pipeline definition. Steps without an explicit class
// inherit the pipeline's default_class when one is set.
func (p *YAMLParser) Parse(r io.Reader) (*models.Pipeline, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var raw pipelineYAML
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	defaultClass, err := classFromString(raw.DefaultClass)
	if err != nil {
		return nil, fmt.Errorf("default_class: %w", err)
	}

	pipeline := &models.Pipeline{Name: raw.Name}
	for i, rs := range raw.Steps {
		class, err := classFromString(rs.Class)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, rs.Name, err)
		}
		if class == "" {
			class = defaultClass
		}

		pipeline.Steps = append(pipeline.Steps, models.Step{
			Name:      rs.Name,
			Command:   rs.Command,
			Class:     class,
			Transform: rs.Transform,
			Pattern:   rs.Pattern,
			Env:       rs.Env,
		})
	}

	return pipeline, nil
}

// classFromString normalizes a class value from a pipeline file.
// Empty input stays empty; the runtime default (blocking) applies later.
func classFromString(s string) (models.Class, error) {
	switch s {
	case "":
		return "", nil
	case string(models.ClassBlocking):
		return models.ClassBlocking, nil
	case string(models.ClassAdvisory):
		return models.ClassAdvisory, nil
	default:
		return "", fmt.Errorf("invalid class %q (must be %q or %q)", s, models.ClassBlocking, models.ClassAdvisory)
	}
}
