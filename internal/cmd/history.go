package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/gate/internal/config"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'gate history' parent command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Run history commands",
		Long: `Commands for viewing and managing recorded run history.

Runs are recorded when history is enabled in .gate/config.yaml or when
the run command is invoked with --record. History never influences how
steps run; it is a ledger of past results.`,
	}

	// Add subcommands
	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

// resolveHistoryDBPath locates the history database for the history
// subcommands. The flag override wins; otherwise the configured path is
// used, falling back to the checkout's conventional .gate location when a
// relative configured path does not exist, so the commands also work from
// a subdirectory of the checkout.
func resolveHistoryDBPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	path := cfg.History.DBPath

	if _, statErr := os.Stat(path); statErr == nil {
		return path, nil
	}

	if !filepath.IsAbs(path) {
		if conventional, homeErr := config.GetHistoryDBPath(); homeErr == nil {
			if _, statErr := os.Stat(conventional); statErr == nil {
				return conventional, nil
			}
		}
	}

	return path, nil
}
