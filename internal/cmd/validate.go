package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harrison/gate/internal/display"
	"github.com/harrison/gate/internal/models"
	"github.com/harrison/gate/internal/parser"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [pipeline...]",
		Short: "Validate pipeline files without running anything",
		Long: `Parse and validate pipeline files, checking for:
  - Step validation (names, commands)
  - Duplicate step names, also across merged files
  - Unknown transformers
  - Pattern transformers whose regex does not compile or lacks groups

Supports the same inputs as run:
  - No arguments: gate validate (uses gate.yaml in the current directory)
  - Single file: gate validate ci.yaml
  - Single directory: gate validate .gate/pipelines/ (filters gate-* files)
  - Multiple files: gate validate gate-01-style.yaml gate-02-tests.md

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validatePipelineArgs(args, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	return cmd
}

// validatePipelineArgs dispatches on the argument shape: default file,
// single file, single directory, or an explicit list.
func validatePipelineArgs(paths []string, output io.Writer) error {
	if len(paths) == 0 {
		path, err := parser.DefaultPipelinePath(".")
		if err != nil {
			return err
		}
		return validateSingleFile(path, output)
	}

	if len(paths) == 1 {
		info, err := os.Stat(paths[0])
		if err != nil {
			fmt.Fprintf(output, "✗ Failed to parse %s\n", paths[0])
			return fmt.Errorf("failed to access %s: %w", paths[0], err)
		}
		if info.IsDir() {
			return validateDirectory(paths[0], output)
		}
		return validateSingleFile(paths[0], output)
	}

	return validateFileSet(paths, output)
}

// validateSingleFile parses and validates one pipeline file.
func validateSingleFile(path string, output io.Writer) error {
	display.DisplaySingleFile(output, path)

	pipeline, err := parser.ParseFile(path)
	if err != nil {
		fmt.Fprintf(output, "✗ Failed to parse %s\n", path)
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	fmt.Fprintf(output, "\x1b[32m✓\x1b[0m Parsed %d steps from %s\n",
		len(pipeline.Steps), filepath.Base(path))

	return reportPipelineProblems(pipeline, output)
}

// validateDirectory validates every gate-* pipeline file in a directory,
// warning about files that look like pipeline files but would be skipped.
func validateDirectory(dir string, output io.Writer) error {
	if nearMisses, err := display.FindNearMissFiles(dir); err == nil && len(nearMisses) > 0 {
		display.WarnNearMissFiles("Found files that look like pipeline files but will be skipped", nearMisses).Display(output)
	}

	files, err := parser.FilterPipelineFiles([]string{dir})
	if err != nil {
		return err
	}
	return validateFiles(files, output)
}

// validateFileSet validates an explicit list of files and/or directories.
func validateFileSet(paths []string, output io.Writer) error {
	files, err := parser.FilterPipelineFiles(paths)
	if err != nil {
		return err
	}
	return validateFiles(files, output)
}

// validateFiles parses each file with progress output, then validates the
// merged pipeline so cross-file duplicates are caught too.
func validateFiles(files []string, output io.Writer) error {
	progress := display.NewProgressIndicator(output, len(files))
	progress.Start()

	var errors []string
	pipelines := make([]*models.Pipeline, 0, len(files))
	totalSteps := 0

	for _, file := range files {
		progress.Step(file)
		pipeline, err := parser.ParseFile(file)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", filepath.Base(file), err))
			continue
		}
		totalSteps += len(pipeline.Steps)
		pipelines = append(pipelines, pipeline)
	}
	progress.Complete()

	if len(errors) > 0 {
		return failValidation(output, errors)
	}

	fmt.Fprintf(output, "\x1b[32m✓\x1b[0m Parsed %d steps from %d pipeline files\n",
		totalSteps, len(files))

	merged, err := parser.MergePipelines(pipelines...)
	if err != nil {
		return failValidation(output, []string{err.Error()})
	}

	return reportPipelineProblems(merged, output)
}

// reportPipelineProblems prints the verdict for a parsed pipeline and
// returns an error when any problem was found.
func reportPipelineProblems(pipeline *models.Pipeline, output io.Writer) error {
	problems := parser.CheckPipeline(pipeline)
	if len(problems) > 0 {
		return failValidation(output, problems)
	}

	fmt.Fprintf(output, "✓ Step names are unique\n")
	fmt.Fprintf(output, "✓ Every transformer resolves\n")
	fmt.Fprintf(output, "\n✓ Pipeline is valid!\n")
	return nil
}

// failValidation prints the accumulated problems and returns the error
// that makes the command exit non-zero.
func failValidation(output io.Writer, errors []string) error {
	fmt.Fprintf(output, "\n✗ Validation failed\n\n")
	for _, e := range errors {
		fmt.Fprintf(output, "  ✗ %s\n", e)
	}
	fmt.Fprintf(output, "\nFound %d validation error(s)!\n", len(errors))
	return fmt.Errorf("validation failed with %d error(s)", len(errors))
}
