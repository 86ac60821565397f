package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for gate
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "CI gate that runs every verification step and reports all failures",
		Long: `Gate executes an ordered list of named verification steps as shell
commands and aggregates the results into a single pass/fail verdict.

Steps never short-circuit: every step runs even after earlier failures,
so one run surfaces every problem at once. A failing blocking step fails
the run; advisory steps are reported without changing the verdict.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
