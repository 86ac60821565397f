package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/gate/internal/history"
	"github.com/harrison/gate/internal/models"
	"github.com/spf13/cobra"
)

// newHistoryShowCommand creates the 'gate history show' command
func newHistoryShowCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show <run>",
		Short: "Show every step of a recorded run",
		Long: `Display one recorded run in detail including:
  - Pipeline, verdict, and timing
  - Every step in execution order
  - Per-step status, exit code, and duration
  - Truncated step output

The run can be addressed by its database id (from 'gate history list')
or by its full run id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0], dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// runHistoryShow executes the show command
func runHistoryShow(cmd *cobra.Command, runRef string, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	dbPath, err := resolveHistoryDBPath(dbPathOverride)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No run history found at: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	// A numeric reference is a database id, anything else a run id
	var run *history.RunRecord
	if id, convErr := strconv.ParseInt(runRef, 10, 64); convErr == nil {
		run, err = store.GetRun(ctx, id)
	} else {
		run, err = store.GetRunByRunID(ctx, runRef)
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	if run == nil {
		fmt.Fprintf(output, "No recorded run found for %q\n", runRef)
		return nil
	}

	steps, err := store.GetSteps(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("get steps: %w", err)
	}

	printRunDetail(output, run, steps)
	return nil
}

// printRunDetail formats and prints a recorded run with its steps
func printRunDetail(w io.Writer, run *history.RunRecord, steps []*history.StepRecord) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== Run #%d: %s ===\n\n", run.ID, run.Pipeline)

	fmt.Fprintf(w, "Run id: %s\n", run.RunID)
	fmt.Fprintf(w, "Started: %s ", formatTimestamp(run.StartedAt))
	gray.Fprintf(w, "(%s ago)\n", formatDuration(time.Since(run.StartedAt)))
	fmt.Fprintf(w, "Duration: %s\n", run.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Overall: ")
	if run.Overall == models.OverallSuccess {
		green.Fprintf(w, "%s", run.Overall)
	} else {
		red.Fprintf(w, "%s", run.Overall)
	}
	fmt.Fprintf(w, " (%d/%d passed", run.Passed, run.TotalSteps)
	if run.Annotations > 0 {
		fmt.Fprintf(w, ", %d annotation(s)", run.Annotations)
	}
	fmt.Fprintf(w, ")\n\n")

	for i, step := range steps {
		cyan.Fprintf(w, "Step %d: %s\n", step.Position+1, step.Name)

		if step.Command != "" {
			fmt.Fprintf(w, "  Command: %s\n", step.Command)
		}

		fmt.Fprintf(w, "  Class: ")
		if step.Class == string(models.ClassAdvisory) {
			yellow.Fprintf(w, "advisory\n")
		} else {
			fmt.Fprintf(w, "blocking\n")
		}

		fmt.Fprintf(w, "  Status: ")
		if step.Status == models.StatusPass {
			green.Fprintf(w, "PASS\n")
		} else {
			red.Fprintf(w, "FAIL (exit %d)\n", step.ExitCode)
		}

		fmt.Fprintf(w, "  Duration: %s\n", step.Duration.Round(time.Millisecond))

		if step.Annotations > 0 {
			fmt.Fprintf(w, "  Annotations: %d\n", step.Annotations)
		}

		fmt.Fprintf(w, "  Output: ")
		out := strings.TrimSpace(step.Output)
		if out == "" {
			gray.Fprintf(w, "(no output)\n")
		} else {
			// Truncate long output
			const maxOutputLen = 200
			if len(out) > maxOutputLen {
				out = out[:maxOutputLen] + "..."
			}
			// Replace newlines with spaces for compact display
			out = strings.ReplaceAll(out, "\n", " ")
			fmt.Fprintf(w, "%s\n", out)
		}

		if i < len(steps)-1 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w)
}

// formatTimestamp formats a timestamp for display
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatDuration formats a duration for human-readable display
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}
