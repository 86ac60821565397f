package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/gate/internal/history"
	"github.com/harrison/gate/internal/models"
	"github.com/spf13/cobra"
)

// newHistoryListCommand creates the 'gate history list' command
func newHistoryListCommand() *cobra.Command {
	var pipeline string
	var limit int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Long: `List recorded runs, most recent first.

Each line shows the run's database id, run id, pipeline, verdict, how
many steps passed, when it started, and how long it took. Use the id
with 'gate history show' to inspect a run's steps.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, pipeline, limit, dbPath)
		},
	}

	cmd.Flags().StringVar(&pipeline, "pipeline", "", "Only list runs of this pipeline")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// runHistoryList executes the list command
func runHistoryList(cmd *cobra.Command, pipeline string, limit int, dbPathOverride string) error {
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
	runs, err := store.ListRuns(ctx, pipeline, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		if pipeline != "" {
			fmt.Fprintf(output, "No recorded runs for pipeline %q\n", pipeline)
		} else {
			fmt.Fprintf(output, "No recorded runs\n")
		}
		return nil
	}

	printRunList(output, runs)
	return nil
}

// printRunList formats and prints one line per recorded run
func printRunList(w io.Writer, runs []*history.RunRecord) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== Run History ===\n\n")

	for _, run := range runs {
		fmt.Fprintf(w, "#%-4d %s  %-16s ", run.ID, shortRunID(run.RunID), run.Pipeline)

		if run.Overall == models.OverallSuccess {
			green.Fprintf(w, "%-8s", run.Overall)
		} else {
			red.Fprintf(w, "%-8s", run.Overall)
		}

		fmt.Fprintf(w, " %d/%d passed  %s ", run.Passed, run.TotalSteps, formatTimestamp(run.StartedAt))
		gray.Fprintf(w, "(%s ago)", formatDuration(time.Since(run.StartedAt)))
		fmt.Fprintf(w, "  %s\n", run.Duration.Round(100*time.Millisecond))
	}

	fmt.Fprintln(w)
}

// shortRunID shortens a run UUID to its first block for display
func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}
