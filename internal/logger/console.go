// Package logger provides logging implementations for gate runs.
//
// The logger package offers structured logging of run progress at the
// step and summary levels. Implementations are thread-safe and support
// various output destinations (console, file, etc.).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/gate/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps for tracking execution flow.
// It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool

	// Progress state for the current run, reset by LogRunStart.
	totalSteps    int
	doneSteps     int
	totalStepTime time.Duration
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// logLevel determines the minimum log level for messages to be output.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
// Color output is automatically enabled when writing to os.Stdout or os.Stderr with TTY support.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		mutex:       sync.Mutex{},
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns true for os.Stdout and os.Stderr when they are TTYs.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || (f != os.Stdout && f != os.Stderr) {
		return false
	}

	// The color library's NoColor flag also honors NO_COLOR.
	if color.NoColor {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info" // Default level
}

// shouldLog checks if a message at the given level should be logged.
// Returns true if messageLevel >= configured logLevel.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo // Default to info if unknown
	}
}

// LogTrace logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, colorizeLevel(level), message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// colorizeLevel wraps a level tag in its ANSI color.
func colorizeLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogRunStart logs the beginning of a pipeline run at INFO level.
// Format: "[HH:MM:SS] Running pipeline <name>: <count> steps"
func (cl *ConsoleLogger) LogRunStart(pipeline models.Pipeline) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	cl.totalSteps = len(pipeline.Steps)
	cl.doneSteps = 0
	cl.totalStepTime = 0

	ts := timestamp()
	stepCount := len(pipeline.Steps)
	stepLabel := "steps"
	if stepCount == 1 {
		stepLabel = "step"
	}

	name := pipeline.Name
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(pipeline.Name)
	}
	cl.writer.Write([]byte(fmt.Sprintf("[%s] Running pipeline %s: %d %s\n", ts, name, stepCount, stepLabel)))
}

// LogStepStart logs the start of a step at INFO level.
// Format: "[HH:MM:SS] [2/3] Starting clippy"
func (cl *ConsoleLogger) LogStepStart(step models.Step, index, total int) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	name := step.Name
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(step.Name)
	}

	suffix := ""
	if !step.Blocking() {
		suffix = " (advisory)"
	}
	cl.writer.Write([]byte(fmt.Sprintf("[%s] [%d/%d] Starting %s%s\n", ts, index+1, total, name, suffix)))
}

// LogStepResult logs the outcome of a step at INFO level, followed by a
// progress line while steps remain.
// Format: "[HH:MM:SS] fmt: FAIL (exit 1, 1.2s)"
func (cl *ConsoleLogger) LogStepResult(result models.StepResult) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	cl.doneSteps++
	cl.totalStepTime += result.Duration

	ts := timestamp()
	verdict := cl.formatVerdict(result)
	detail := stepResultDetail(result)
	cl.writer.Write([]byte(fmt.Sprintf("[%s] %s: %s (%s)\n", ts, result.Step.Name, verdict, detail)))

	if len(result.Annotations) > 0 && cl.shouldLog("debug") {
		annLabel := "annotations"
		if len(result.Annotations) == 1 {
			annLabel = "annotation"
		}
		cl.writer.Write([]byte(fmt.Sprintf("[%s] [DEBUG] %s produced %d %s\n", ts, result.Step.Name, len(result.Annotations), annLabel)))
	}

	// Progress line between steps; the summary covers the final state.
	if cl.totalSteps > 0 && cl.doneSteps < cl.totalSteps {
		pb := NewProgressBar(cl.totalSteps, 10, cl.colorOutput)
		pb.Update(cl.doneSteps)

		avg := cl.totalStepTime / time.Duration(cl.doneSteps)
		cl.writer.Write([]byte(fmt.Sprintf("[%s] Progress: %s - Avg: %s/step\n", ts, pb.Render(), formatDuration(avg))))
	}
}

// formatVerdict renders PASS/FAIL with color when enabled. Advisory
// failures show yellow instead of red since they do not fail the run.
func (cl *ConsoleLogger) formatVerdict(result models.StepResult) string {
	if !cl.colorOutput {
		return result.Status
	}

	switch {
	case result.Passed():
		return color.New(color.FgGreen).Sprint(result.Status)
	case result.Step.Blocking():
		return color.New(color.FgRed).Sprint(result.Status)
	default:
		return color.New(color.FgYellow).Sprint(result.Status)
	}
}

// stepResultDetail summarizes how the step ended for the result line.
func stepResultDetail(result models.StepResult) string {
	if result.Err != nil {
		return "not invoked"
	}
	if result.ExitCode > 0 {
		return fmt.Sprintf("exit %d, %s", result.ExitCode, formatDuration(result.Duration))
	}
	return formatDuration(result.Duration)
}

// LogSummary logs the run summary with aggregate statistics at INFO level.
func (cl *ConsoleLogger) LogSummary(report models.RunReport) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(report.Duration)

	var output string
	if cl.colorOutput {
		header := color.New(color.Bold).Sprint("=== Gate Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		output += fmt.Sprintf("[%s] Total steps: %d\n", ts, report.TotalSteps)

		passedText := color.New(color.FgGreen).Sprintf("Passed: %d", report.Passed)
		output += fmt.Sprintf("[%s] %s\n", ts, passedText)

		if report.Failed > 0 {
			failedText := color.New(color.FgRed).Sprintf("Failed: %d", report.Failed)
			output += fmt.Sprintf("[%s] %s\n", ts, failedText)
		} else {
			output += fmt.Sprintf("[%s] Failed: %d\n", ts, report.Failed)
		}

		output += fmt.Sprintf("[%s] Annotations: %d\n", ts, report.Annotations)
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)

		if failed := report.FailedResults(); len(failed) > 0 {
			failedHeader := color.New(color.FgRed).Sprint("Failed steps:")
			output += fmt.Sprintf("[%s] %s\n", ts, failedHeader)
			for _, res := range failed {
				name := color.New(color.FgRed).Sprint(res.Step.Name)
				output += fmt.Sprintf("[%s]   - %s%s\n", ts, name, advisoryTag(res))
			}
		}

		var overall string
		if report.Succeeded() {
			overall = color.New(color.FgGreen, color.Bold).Sprint("SUCCESS")
		} else {
			overall = color.New(color.FgRed, color.Bold).Sprint("FAILURE")
		}
		output += fmt.Sprintf("[%s] Overall: %s\n", ts, overall)
	} else {
		output = fmt.Sprintf("[%s] === Gate Summary ===\n", ts)
		output += fmt.Sprintf("[%s] Total steps: %d\n", ts, report.TotalSteps)
		output += fmt.Sprintf("[%s] Passed: %d\n", ts, report.Passed)
		output += fmt.Sprintf("[%s] Failed: %d\n", ts, report.Failed)
		output += fmt.Sprintf("[%s] Annotations: %d\n", ts, report.Annotations)
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)

		if failed := report.FailedResults(); len(failed) > 0 {
			output += fmt.Sprintf("[%s] Failed steps:\n", ts)
			for _, res := range failed {
				output += fmt.Sprintf("[%s]   - %s%s\n", ts, res.Step.Name, advisoryTag(res))
			}
		}

		overall := "SUCCESS"
		if !report.Succeeded() {
			overall = "FAILURE"
		}
		output += fmt.Sprintf("[%s] Overall: %s\n", ts, overall)
	}

	cl.writer.Write([]byte(output))
}

// advisoryTag marks failed advisory steps in failure lists.
func advisoryTag(res models.StepResult) string {
	if res.Step.Blocking() {
		return ""
	}
	return " (advisory)"
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogRunStart is a no-op implementation.
func (n *NoOpLogger) LogRunStart(pipeline models.Pipeline) {
}

// LogStepStart is a no-op implementation.
func (n *NoOpLogger) LogStepStart(step models.Step, index, total int) {
}

// LogStepResult is a no-op implementation.
func (n *NoOpLogger) LogStepResult(result models.StepResult) {
}

// LogSummary is a no-op implementation.
func (n *NoOpLogger) LogSummary(report models.RunReport) {
}
