package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/harrison/gate/internal/annotate"
	"github.com/harrison/gate/internal/config"
	"github.com/harrison/gate/internal/display"
	"github.com/harrison/gate/internal/executor"
	"github.com/harrison/gate/internal/filelock"
	"github.com/harrison/gate/internal/history"
	"github.com/harrison/gate/internal/logger"
	"github.com/harrison/gate/internal/models"
	"github.com/harrison/gate/internal/parser"
	"github.com/spf13/cobra"
)

// multiLogger fans run events out to several loggers, typically the
// console logger and the file logger.
type multiLogger struct {
	loggers []executor.Logger
}

func (ml *multiLogger) LogRunStart(pipeline models.Pipeline) {
	for _, l := range ml.loggers {
		l.LogRunStart(pipeline)
	}
}

func (ml *multiLogger) LogStepStart(step models.Step, index, total int) {
	for _, l := range ml.loggers {
		l.LogStepStart(step, index, total)
	}
}

func (ml *multiLogger) LogStepResult(result models.StepResult) {
	for _, l := range ml.loggers {
		l.LogStepResult(result)
	}
}

func (ml *multiLogger) LogSummary(report models.RunReport) {
	for _, l := range ml.loggers {
		l.LogSummary(report)
	}
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		configFile  string
		dryRun      bool
		timeoutStr  string
		annotations string
		logDir      string
		workDir     string
		reportPath  string
		verbose     bool
		record      bool
		noRecord    bool
		noLock      bool
	)

	cmd := &cobra.Command{
		Use:   "run [pipeline...]",
		Short: "Run a pipeline of verification steps",
		Long: `Run executes every step of a pipeline in order and reports the outcome.

Steps run sequentially and never short-circuit: a failing step does not
prevent later steps from running, so a single run reports every problem.
The command exits non-zero when any blocking step fails; advisory step
failures are reported but do not change the exit code.

With no arguments, run looks for gate.yaml (then gate.yml, gate.md,
gate.markdown) in the current directory. A file argument runs that
pipeline; a directory argument merges every gate-* pipeline file in it;
multiple arguments are merged into one combined pipeline.

Examples:
  # Run the default pipeline in the current directory
  gate run

  # Run a specific pipeline file
  gate run ci.yaml

  # Merge every gate-* file under .gate/pipelines
  gate run .gate/pipelines

  # Validate and list steps without executing anything
  gate run --dry-run ci.yaml

  # Fail any step that runs longer than two minutes
  gate run --timeout 2m ci.yaml

  # Write the full report as JSON and record the run
  gate run --report gate-report.json --record ci.yaml`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{
				configFile:  configFile,
				dryRun:      dryRun,
				timeoutStr:  timeoutStr,
				annotations: annotations,
				logDir:      logDir,
				workDir:     workDir,
				reportPath:  reportPath,
				verbose:     verbose,
				record:      record,
				noRecord:    noRecord,
				noLock:      noLock,
			}
			return runPipeline(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a config file (default: .gate/config.yaml)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the pipeline and list steps without executing")
	cmd.Flags().StringVar(&timeoutStr, "timeout", "", "Per-step timeout, e.g. 30s or 5m (default: no limit)")
	cmd.Flags().StringVar(&annotations, "annotations", "", "Annotation output mode: github, text, or off")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for run logs (default: .gate/logs)")
	cmd.Flags().StringVar(&workDir, "workdir", "", "Working directory for step commands")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the run report as JSON to this file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVar(&record, "record", false, "Record this run in the history database")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record this run even if config enables history")
	cmd.Flags().BoolVar(&noLock, "no-lock", false, "Skip the run lock that serializes runs per checkout")

	return cmd
}

// runOptions carries the run command's flag values.
type runOptions struct {
	configFile  string
	dryRun      bool
	timeoutStr  string
	annotations string
	logDir      string
	workDir     string
	reportPath  string
	verbose     bool
	record      bool
	noRecord    bool
	noLock      bool
}

// runPipeline executes the run command
func runPipeline(cmd *cobra.Command, args []string, opts runOptions) error {
	output := cmd.OutOrStdout()

	if opts.record && opts.noRecord {
		return fmt.Errorf("cannot combine --record and --no-record")
	}

	// Load configuration, then let changed flags override file values
	var cfg *config.Config
	var err error
	if opts.configFile != "" {
		cfg, err = config.LoadConfig(opts.configFile)
	} else {
		cfg, err = config.LoadConfigFromDir(".")
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		d, parseErr := time.ParseDuration(opts.timeoutStr)
		if parseErr != nil {
			return fmt.Errorf("invalid timeout format %q: %w", opts.timeoutStr, parseErr)
		}
		timeoutPtr = &d
	}
	var logDirPtr, annotationsPtr, workDirPtr *string
	if cmd.Flags().Changed("log-dir") {
		logDirPtr = &opts.logDir
	}
	if cmd.Flags().Changed("annotations") {
		annotationsPtr = &opts.annotations
	}
	if cmd.Flags().Changed("workdir") {
		workDirPtr = &opts.workDir
	}
	var recordPtr *bool
	if opts.record || opts.noRecord {
		v := opts.record
		recordPtr = &v
	}
	cfg.MergeWithFlags(timeoutPtr, logDirPtr, annotationsPtr, workDirPtr, recordPtr)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Resolve and parse the pipeline from the positional arguments
	pipeline, err := loadPipeline(output, args)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "\nPipeline Summary:\n")
	fmt.Fprintf(output, "  Name: %s\n", pipeline.Name)
	fmt.Fprintf(output, "  Total steps: %d\n", len(pipeline.Steps))
	if cfg.Timeout > 0 {
		fmt.Fprintf(output, "  Step timeout: %s\n", cfg.Timeout)
	} else {
		fmt.Fprintf(output, "  Step timeout: none\n")
	}
	fmt.Fprintf(output, "  Annotations: %s\n", cfg.Annotations)

	if opts.dryRun {
		return dryRunPipeline(output, pipeline, opts.verbose)
	}

	// Serialize runs per checkout so two runs cannot interleave
	if !opts.noLock {
		lockPath, lockErr := config.GetLockPath()
		if lockErr != nil {
			return fmt.Errorf("failed to resolve lock path: %w", lockErr)
		}
		lock := filelock.NewFileLock(lockPath)
		acquired, lockErr := lock.TryLock()
		if lockErr != nil {
			return fmt.Errorf("failed to acquire run lock: %w", lockErr)
		}
		if !acquired {
			return fmt.Errorf("another run holds the lock at %s (use --no-lock to bypass)", lock.Path())
		}
		defer lock.Unlock()
	}

	logLevel := cfg.LogLevel
	if opts.verbose {
		logLevel = "debug"
	}

	consoleLog := logger.NewConsoleLogger(output, logLevel)
	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, logLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	runLogger := &multiLogger{loggers: []executor.Logger{consoleLog, fileLog}}

	runner := executor.NewShellCommandRunner(cfg.WorkDir)
	orch := executor.NewOrchestrator(runner, runLogger)
	orch.StepTimeout = cfg.Timeout

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := orch.Run(ctx, *pipeline)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	// Emit annotations after the summary so workflow commands stay grouped
	sink, err := annotate.NewSink(cfg.Annotations, output)
	if err != nil {
		return fmt.Errorf("failed to create annotation sink: %w", err)
	}
	for _, ann := range report.AllAnnotations() {
		if emitErr := sink.Emit(ann); emitErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to emit annotation: %v\n", emitErr)
			break
		}
	}

	if opts.reportPath != "" {
		if err := writeReportFile(opts.reportPath, report); err != nil {
			return err
		}
		fmt.Fprintf(output, "\nReport written to: %s\n", opts.reportPath)
	}

	if cfg.History.Enabled {
		if histErr := recordHistory(ctx, cfg, report); histErr != nil {
			// A broken ledger never changes the run's outcome
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to record run history: %v\n", histErr)
		}
	}

	fmt.Fprintf(output, "\nLogs written to: %s\n", fileLog.RunLogPath())

	if !report.Succeeded() {
		return fmt.Errorf("%d blocking step(s) failed", blockingFailureCount(report))
	}

	return nil
}

// loadPipeline resolves the positional arguments into a single pipeline.
// No arguments means the default pipeline file in the current directory; a
// directory argument merges every gate-* pipeline file inside it.
func loadPipeline(output io.Writer, args []string) (*models.Pipeline, error) {
	if len(args) == 0 {
		path, err := parser.DefaultPipelinePath(".")
		if err != nil {
			return nil, err
		}
		display.DisplaySingleFile(output, path)
		return parser.ParseFile(path)
	}

	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load pipeline %s: %w", args[0], err)
		}
		if info.IsDir() {
			fmt.Fprintf(output, "Loading and merging pipelines from %s...\n", args[0])
			return parser.ParseDirectory(args[0])
		}
		display.DisplaySingleFile(output, args[0])
		return parser.ParseFile(args[0])
	}

	files, err := parser.FilterPipelineFiles(args)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(output, "Loading and merging %d pipeline files...\n", len(files))
	pipelines := make([]*models.Pipeline, 0, len(files))
	for _, f := range files {
		p, parseErr := parser.ParseFile(f)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f, parseErr)
		}
		pipelines = append(pipelines, p)
	}
	return parser.MergePipelines(pipelines...)
}

// dryRunPipeline validates the pipeline and lists its steps without
// executing anything.
func dryRunPipeline(output io.Writer, pipeline *models.Pipeline, verbose bool) error {
	if problems := parser.CheckPipeline(pipeline); len(problems) > 0 {
		fmt.Fprintf(output, "\nPipeline problems:\n")
		for _, p := range problems {
			fmt.Fprintf(output, "  ✗ %s\n", p)
		}
		return fmt.Errorf("pipeline validation failed with %d problem(s)", len(problems))
	}

	fmt.Fprintf(output, "\nSteps:\n")
	for i, step := range pipeline.Steps {
		class := "blocking"
		if !step.Blocking() {
			class = "advisory"
		}
		fmt.Fprintf(output, "  %d. %s [%s]\n", i+1, step.Name, class)
		if verbose {
			fmt.Fprintf(output, "     $ %s\n", step.Command)
		}
	}

	fmt.Fprintf(output, "\nDry-run mode: pipeline is valid and ready to run.\n")
	return nil
}

// writeReportFile marshals the report and writes it atomically so a
// concurrent reader never sees a torn file.
func writeReportFile(path string, report *models.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	data = append(data, '\n')
	if err := filelock.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// recordHistory appends the run report to the history database.
func recordHistory(ctx context.Context, cfg *config.Config, report *models.RunReport) error {
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.RecordRun(ctx, report)
	return err
}

// blockingFailureCount counts the failed steps that fail the run.
func blockingFailureCount(report *models.RunReport) int {
	count := 0
	for _, res := range report.Results {
		if res.BlockingFailure() {
			count++
		}
	}
	return count
}
