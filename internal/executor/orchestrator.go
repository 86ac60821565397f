package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/gate/internal/annotate"
	"github.com/harrison/gate/internal/models"
)

// Logger defines the interface for logging orchestrator progress and results.
type Logger interface {
	LogRunStart(pipeline models.Pipeline)
	LogStepStart(step models.Step, index, total int)
	LogStepResult(result models.StepResult)
	LogSummary(report models.RunReport)
}

// Orchestrator runs a pipeline's steps strictly in order, never
// short-circuiting, and aggregates the results into a RunReport.
type Orchestrator struct {
	runner CommandRunner
	logger Logger

	// StepTimeout bounds each step's execution. Zero means no limit.
	StepTimeout time.Duration
}

// NewOrchestrator creates a new Orchestrator instance.
// The logger parameter is optional and can be nil.
func NewOrchestrator(runner CommandRunner, logger Logger) *Orchestrator {
	if runner == nil {
		panic("command runner cannot be nil")
	}

	return &Orchestrator{
		runner: runner,
		logger: logger,
	}
}

// Run executes every step of the pipeline in declaration order and returns
// the aggregated report. It returns an error only for an invalid pipeline
// (no steps, duplicate names, unresolvable transformer); once execution
// starts, every failure mode is recorded in the report instead. A blocking
// failure never prevents later steps from running.
//
// SIGINT/SIGTERM cancel the run: the in-flight step is killed and remaining
// steps are recorded as never invoked, so the report still covers every
// configured step.
func (o *Orchestrator) Run(ctx context.Context, pipeline models.Pipeline) (*models.RunReport, error) {
	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	// Resolve transformers up front so configuration mistakes surface
	// before any command runs.
	transformers := make([]annotate.Transformer, len(pipeline.Steps))
	for i, step := range pipeline.Steps {
		tr, err := annotate.ForStep(step)
		if err != nil {
			return nil, fmt.Errorf("invalid pipeline: %w", err)
		}
		transformers[i] = tr
	}

	// Set up context with cancellation for signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	report := &models.RunReport{
		RunID:     uuid.NewString(),
		Pipeline:  pipeline.Name,
		StartedAt: time.Now(),
	}

	if o.logger != nil {
		o.logger.LogRunStart(pipeline)
	}

	startTime := time.Now()
	for i, step := range pipeline.Steps {
		if o.logger != nil {
			o.logger.LogStepStart(step, i, len(pipeline.Steps))
		}

		result := o.runStep(ctx, step, transformers[i])
		report.Results = append(report.Results, result)

		if o.logger != nil {
			o.logger.LogStepResult(result)
		}
	}
	report.Duration = time.Since(startTime)
	report.Recompute()

	if o.logger != nil {
		o.logger.LogSummary(*report)
	}

	return report, nil
}

// runStep executes one step and derives its annotations. All failure modes
// come back as a StepResult; nothing escapes as an error.
func (o *Orchestrator) runStep(ctx context.Context, step models.Step, tr annotate.Transformer) models.StepResult {
	result := models.StepResult{Step: step, ExitCode: -1}

	// Run already cancelled: record the step as never invoked.
	if ctx.Err() != nil {
		result.Status = models.StatusFail
		result.Err = NewInvocationError(step.Name, step.Command, ctx.Err())
		result.Annotations = []models.Annotation{syntheticAnnotation(step,
			fmt.Sprintf("step %s was not run: %v", step.Name, ctx.Err()))}
		return result
	}

	stepCtx := ctx
	if o.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, o.StepTimeout)
		defer cancel()
	}

	start := time.Now()
	output, exitCode, err := o.runner.Run(stepCtx, step.Command, step.Env)
	result.Duration = time.Since(start)
	result.Output = output
	result.ExitCode = exitCode

	if err != nil {
		result.Status = models.StatusFail
		result.ExitCode = -1
		result.Err = NewInvocationError(step.Name, step.Command, err)
		result.Annotations = []models.Annotation{syntheticAnnotation(step, result.Err.Error())}
		return result
	}

	if ctxErr := stepCtx.Err(); ctxErr != nil {
		// The command was killed by the deadline or an interrupt.
		result.Status = models.StatusFail
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			result.Err = NewTimeoutError(step.Name, o.StepTimeout)
		} else {
			result.Err = fmt.Errorf("step %s interrupted: %w", step.Name, ctxErr)
		}
		result.Annotations = []models.Annotation{syntheticAnnotation(step, result.Err.Error())}
		return result
	}

	if exitCode == 0 {
		result.Status = models.StatusPass
	} else {
		result.Status = models.StatusFail
	}

	result.Annotations = o.deriveAnnotations(step, tr, result)
	return result
}

// deriveAnnotations applies the step's transformer to its captured output.
// Steps without a transformer produce no annotations; their output is
// informational only. A transform failure, or a failing step whose
// transformer produced nothing, degrades to a single fallback annotation
// carrying the raw output so the report never silently drops evidence.
func (o *Orchestrator) deriveAnnotations(step models.Step, tr annotate.Transformer, result models.StepResult) []models.Annotation {
	if tr == nil {
		return nil
	}

	annotations, err := tr.Transform(result.Output)
	if err != nil {
		return []models.Annotation{annotate.FallbackAnnotation(step, result.Output)}
	}
	if len(annotations) == 0 && !result.Passed() {
		return []models.Annotation{annotate.FallbackAnnotation(step, result.Output)}
	}
	return annotations
}

// syntheticAnnotation builds the annotation attached to a step that never
// produced usable output (invocation failure, timeout, cancellation).
func syntheticAnnotation(step models.Step, message string) models.Annotation {
	return models.Annotation{
		Severity: annotate.SeverityFor(step),
		Message:  annotate.EscapeMessage(message),
	}
}
