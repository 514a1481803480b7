package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for mkattack.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkattack",
		Short: "Re-identification risk assessment for record-linkage match-keys",
		Long: `mkattack measures how exposed hashed match-keys are to re-identification.

Given a reference population (CSV or Parquet) and a table of published
SHA-256 match-keys, it enumerates guesses from the most frequent values of
each field, recovers every digest it can, grades the risk of each scheme,
and folds the recovered records into person profiles.

Runs are saved to a SQLite database in the XDG data directory, or to
PostgreSQL with --db-url.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .mkattack in current or home directory)")
	cmd.PersistentFlags().Bool("reveal", false,
		"Log recovered personal values in clear text")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewAttackCmd())
	cmd.AddCommand(NewCorrelateCmd())
	cmd.AddCommand(NewProfilesCmd())
	cmd.AddCommand(NewForwardCmd())
	cmd.AddCommand(NewSchemesCmd())
	cmd.AddCommand(NewRunsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
