package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/mkattack/internal/population"
)

// NewSchemesCmd creates the schemes command.
func NewSchemesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemes",
		Short: "List the match-key schemes of the registry",
		Long: `Schemes lists the built-in ONS and Randall schemes together with the custom
schemes of the config file, after --scheme and --family filtering.

Fields are shown in hashing order. A transform is written after a colon:
  first_name:prefix(3)  first three characters
  last_name:soundex     Soundex code
  dob:prefix(6)         year and month of birth

Examples:
  mkattack schemes
  mkattack schemes --family randall
  mkattack schemes -O observed.csv`,
		Args: cobra.NoArgs,
		RunE: runSchemesCmd,
	}

	addSchemeFlags(cmd)
	cmd.Flags().StringP("observed", "O", "",
		"Check every scheme's target column against this observed table")

	return cmd
}

func runSchemesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg, cmd.ErrOrStderr())

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Schemes (%d):\n\n", reg.Len())
	fmt.Fprintf(out, "  %-15s  %-8s  %-15s  %s\n", "ID", "Family", "Column", "Fields")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, s := range reg.All() {
		fields := make([]string, 0, s.Len())
		for _, fs := range s.Fields() {
			fields = append(fields, fs.String())
		}
		fmt.Fprintf(out, "  %-15s  %-8s  %-15s  %s\n",
			s.ID(), s.Family(), s.Column(), strings.Join(fields, " + "))
	}

	if cfg.ObservedPath == "" {
		return nil
	}
	observed, err := population.Open(cfg.ObservedPath)
	if err != nil {
		return fmt.Errorf("observed table: %w", err)
	}
	issues := reg.Validate(observed.Columns())
	fmt.Fprintln(out)
	if len(issues) == 0 {
		fmt.Fprintln(out, "Every scheme has its own column in the observed table.")
		return nil
	}
	fmt.Fprintf(out, "Column issues (%d):\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(out, "  • %s\n", issue)
	}
	return nil
}
