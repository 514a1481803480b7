package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/mkattack/internal/population"
)

// NewForwardCmd creates the forward command.
func NewForwardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forward",
		Short: "Compute the match-keys a data holder would publish",
		Long: `Forward hashes every row of a population table with each selected scheme
and writes one digest column per scheme, named after the scheme's target
column. The output is a valid observed table for attack and correlate.

Examples:
  # Publish every built-in match-key of a population to stdout
  mkattack forward -r population.csv

  # Publish the ONS keys to a file
  mkattack forward -r population.parquet --family ons -o published.csv`,
		Args: cobra.NoArgs,
		RunE: runForwardCmd,
	}

	cmd.Flags().StringP("reference", "r", "",
		"Population table to hash (.csv or .parquet)")
	addSchemeFlags(cmd)
	cmd.Flags().StringP("output", "o", "",
		"Write the CSV to specified file path (default: stdout)")

	return cmd
}

func runForwardCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateInputs(true, false); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger := setupLogger(cfg, cmd.ErrOrStderr())

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	t, err := population.Open(cfg.ReferencePath)
	if err != nil {
		return fmt.Errorf("reference table: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	published := population.Forward(reg, t)
	if err := population.WriteCSV(out, published); err != nil {
		return fmt.Errorf("failed to write match-keys: %w", err)
	}
	logger.Info("match-keys written", "rows", published.Len(), "schemes", reg.Len())
	return nil
}
