package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/harrison/gate/internal/annotate"
	"github.com/harrison/gate/internal/models"
)

// FileLogger logs run events to files in the configured log directory.
// It creates timestamped per-run log files, per-step detailed logs,
// and maintains a latest.log symlink pointing to the most recent run.
// It is thread-safe and implements the executor.Logger interface.
// It supports log level filtering to control message verbosity.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	stepsDir string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a new FileLogger that writes to .gate/logs/.
// It creates the log directory if it doesn't exist, opens a timestamped
// run log file, and creates/updates the latest.log symlink.
// Uses default log level "info".
func NewFileLogger() (*FileLogger, error) {
	logDir := filepath.Join(".gate", "logs")
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDir creates a new FileLogger with a custom log directory.
// Uses default log level "info".
func NewFileLoggerWithDir(logDir string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, "info")
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log directory and log level.
func NewFileLoggerWithDirAndLevel(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	stepsDir := filepath.Join(logDir, "steps")
	if err := os.MkdirAll(stepsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create steps directory: %w", err)
	}

	// Timestamped filename: run-YYYYMMDD-HHMMSS.log
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	// Point latest.log at the current run log.
	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		stepsDir: stepsDir,
		logLevel: normalizeLogLevel(logLevel),
		mu:       sync.Mutex{},
	}

	logger.writeRunLog("=== Gate Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunLogPath returns the path of the current run log file.
func (fl *FileLogger) RunLogPath() string {
	return fl.runFile
}

// shouldLog checks if a message at the given level should be logged.
// Returns true if messageLevel >= configured logLevel.
func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}

	formatted := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message)
	fl.writeRunLog(formatted)
}

// LogRunStart logs the beginning of a pipeline run at INFO level.
func (fl *FileLogger) LogRunStart(pipeline models.Pipeline) {
	if !fl.shouldLog("info") {
		return
	}

	stepCount := len(pipeline.Steps)
	stepLabel := "step"
	if stepCount != 1 {
		stepLabel = "steps"
	}

	message := fmt.Sprintf(
		"[%s] Running pipeline %s: %d %s\n",
		time.Now().Format("15:04:05"),
		pipeline.Name,
		stepCount,
		stepLabel,
	)
	fl.writeRunLog(message)
}

// LogStepStart logs the start of a step at INFO level.
func (fl *FileLogger) LogStepStart(step models.Step, index, total int) {
	if !fl.shouldLog("info") {
		return
	}

	message := fmt.Sprintf(
		"[%s] [%d/%d] Starting %s: %s\n",
		time.Now().Format("15:04:05"),
		index+1,
		total,
		step.Name,
		step.Command,
	)
	fl.writeRunLog(message)
}

// LogStepResult writes a result line to the run log and a detailed log
// file for the step in the steps/ subdirectory.
func (fl *FileLogger) LogStepResult(result models.StepResult) {
	if fl.shouldLog("info") {
		message := fmt.Sprintf(
			"[%s] %s: %s (%s)\n",
			time.Now().Format("15:04:05"),
			result.Step.Name,
			result.Status,
			stepResultDetail(result),
		)
		fl.writeRunLog(message)
	}

	if err := fl.writeStepLog(result); err != nil {
		fl.logWithLevel("WARN", fmt.Sprintf("failed to write step log for %s: %v", result.Step.Name, err))
	}
}

// writeStepLog writes the full detail of one step result to steps/step-<name>.log.
func (fl *FileLogger) writeStepLog(result models.StepResult) error {
	stepLogPath := filepath.Join(fl.stepsDir, fmt.Sprintf("step-%s.log", sanitizeName(result.Step.Name)))

	var content strings.Builder
	fmt.Fprintf(&content, "=== Step %s ===\n", result.Step.Name)
	fmt.Fprintf(&content, "Status: %s\n", result.Status)
	fmt.Fprintf(&content, "Class: %s\n", stepClass(result.Step))
	fmt.Fprintf(&content, "Exit code: %d\n", result.ExitCode)
	fmt.Fprintf(&content, "Duration: %s\n", formatDuration(result.Duration))
	fmt.Fprintf(&content, "\nCommand:\n%s\n", result.Step.Command)

	if result.Output != "" {
		fmt.Fprintf(&content, "\nOutput:\n%s\n", result.Output)
	}

	if result.Err != nil {
		fmt.Fprintf(&content, "\nError:\n%v\n", result.Err)
	}

	if len(result.Annotations) > 0 {
		content.WriteString("\nAnnotations:\n")
		// The text sink unescapes messages, so step logs stay readable.
		sink, err := annotate.NewSink(annotate.ModeText, &content)
		if err == nil {
			for _, ann := range result.Annotations {
				sink.Emit(ann)
			}
		}
	}

	fmt.Fprintf(&content, "\nCompleted at: %s\n", time.Now().Format(time.RFC3339))

	fl.mu.Lock()
	defer fl.mu.Unlock()

	file, err := os.OpenFile(stepLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create step log file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(content.String()); err != nil {
		return fmt.Errorf("failed to write step log: %w", err)
	}
	return nil
}

// LogSummary logs the run summary with final statistics at INFO level.
func (fl *FileLogger) LogSummary(report models.RunReport) {
	if !fl.shouldLog("info") {
		return
	}

	timestamp := time.Now().Format("15:04:05")

	status := "SUCCESS"
	if !report.Succeeded() {
		status = "FAILURE"
	}

	message := fmt.Sprintf(
		"\n[%s] === GATE SUMMARY ===\n"+
			"[%s] Total steps:  %d\n"+
			"[%s] Passed:       %d\n"+
			"[%s] Failed:       %d\n"+
			"[%s] Annotations:  %d\n"+
			"[%s] Total time:   %.1fs\n"+
			"[%s] Overall:      %s (%d/%d steps passed)\n"+
			"[%s] Completed at: %s\n",
		timestamp,
		timestamp,
		report.TotalSteps,
		timestamp,
		report.Passed,
		timestamp,
		report.Failed,
		timestamp,
		report.Annotations,
		timestamp,
		report.Duration.Seconds(),
		timestamp,
		status,
		report.Passed,
		report.TotalSteps,
		timestamp,
		time.Now().Format(time.RFC3339),
	)

	fl.writeRunLog(message)
}

// Close flushes and closes the run log file.
// It should be called when the logger is no longer needed.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

// writeRunLog is a thread-safe helper to write to the run log file.
func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write so tails see progress in real time.
		fl.runLog.Sync()
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeName makes a step name safe to use as a file name component.
func sanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "-")
}

// stepClass names the effective class, accounting for the blocking default.
func stepClass(step models.Step) string {
	if step.Class != "" {
		return string(step.Class)
	}
	return string(models.ClassBlocking)
}
