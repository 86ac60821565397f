package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/harrison/gate/internal/config"
	"github.com/harrison/gate/internal/history"
	"github.com/spf13/cobra"
)

// newHistoryPruneCommand creates the 'gate history prune' command
func newHistoryPruneCommand() *cobra.Command {
	var keepRuns int
	var keepDays int
	var dbPath string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old recorded runs",
		Long: `Delete recorded runs that fall outside the retention policy.

Retention keeps the newest --keep-runs runs and drops anything older
than --keep-days days; a value of 0 means unlimited for that dimension.
Flags default to the history settings in .gate/config.yaml. Deleting a
run also deletes its recorded steps.

Examples:
  # Apply the configured retention policy
  gate history prune

  # Keep only the 25 most recent runs
  gate history prune --keep-runs 25 --keep-days 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryPrune(cmd, keepRuns, keepDays, dbPath)
		},
	}

	cmd.Flags().IntVar(&keepRuns, "keep-runs", 0, "Number of most recent runs to keep (0 = unlimited)")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "Number of days of runs to keep (0 = unlimited)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Path to history database (for testing)")

	return cmd
}

// runHistoryPrune executes the prune command
func runHistoryPrune(cmd *cobra.Command, keepRuns, keepDays int, dbPathOverride string) error {
	output := cmd.OutOrStdout()

	// Unchanged flags fall back to the configured retention policy
	if !cmd.Flags().Changed("keep-runs") || !cmd.Flags().Changed("keep-days") {
		cfg, err := config.LoadConfigFromDir(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cmd.Flags().Changed("keep-runs") {
			keepRuns = cfg.History.KeepRuns
		}
		if !cmd.Flags().Changed("keep-days") {
			keepDays = cfg.History.KeepDays
		}
	}

	if keepRuns <= 0 && keepDays <= 0 {
		fmt.Fprintf(output, "Nothing to prune: retention is unlimited (keep-runs=0, keep-days=0)\n")
		return nil
	}

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
	deleted, err := store.Prune(ctx, keepRuns, keepDays)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}

	remaining, err := store.CountRuns(ctx)
	if err != nil {
		return fmt.Errorf("count runs: %w", err)
	}

	runText := "run"
	if deleted != 1 {
		runText = "runs"
	}
	fmt.Fprintf(output, "Deleted %d %s, %d remaining.\n", deleted, runText, remaining)

	return nil
}
