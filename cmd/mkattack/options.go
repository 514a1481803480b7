package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/mkattack/internal/config"
	"github.com/nao1215/mkattack/internal/database"
	"github.com/nao1215/mkattack/internal/log"
	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/report"
)

// === Flag sets ===

// addInputFlags registers the reference and observed table flags.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("reference", "r", "",
		"Reference population table (.csv or .parquet)")
	cmd.Flags().StringP("observed", "O", "",
		"Observed match-key table (.csv or .parquet)")
}

// addSchemeFlags registers the scheme selection flags.
func addSchemeFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("scheme", "s", nil,
		"Restrict the run to these scheme ids (repeatable, comma separated)")
	cmd.Flags().StringSlice("family", nil,
		"Restrict the run to these scheme families (ons, randall, custom)")
}

// addAttackFlags registers the guess space and worker flags.
func addAttackFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("top-k", "k", config.DefaultTopK,
		"Number of most frequent values kept per field")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of goroutines used by the attack")
	cmd.Flags().Int("max-guess-space", config.DefaultMaxGuessSpace,
		"Skip schemes whose guess space is larger than this")
}

// addReportFlags registers the report format and destination flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// addStoreFlags registers the results store flags.
func addStoreFlags(cmd *cobra.Command, withNoSave bool) {
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite results database (default: XDG data directory)")
	cmd.Flags().String("db-url", "",
		"PostgreSQL connection string; replaces the SQLite database")
	if withNoSave {
		cmd.Flags().Bool("no-save", false, "Do not save the run to the results database")
	}
}

// === Config ===

// buildConfig creates a Config from the flags a command defines, then fills
// the gaps from the config file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.Reveal, err = flags.GetBool("reveal"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}

	strs := map[string]*string{
		"reference": &cfg.ReferencePath,
		"observed":  &cfg.ObservedPath,
		"mode":      &cfg.Mode,
		"output":    &cfg.ReportFile,
		"db-url":    &cfg.DBURL,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}

	ints := map[string]*int{
		"top-k":           &cfg.TopK,
		"max-guess-space": &cfg.MaxGuessSpace,
		"workers":         &cfg.Workers,
		"min-overlap":     &cfg.MinOverlap,
		"min-count":       &cfg.MinCount,
	}
	for name, dst := range ints {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetInt(name); err != nil {
			return nil, err
		}
	}

	lists := map[string]*[]string{
		"scheme": &cfg.Schemes,
		"family": &cfg.Families,
		"metric": &cfg.Metrics,
	}
	for name, dst := range lists {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetStringSlice(name); err != nil {
			return nil, err
		}
	}

	bools := map[string]*bool{
		"json":     &cfg.JSONReport,
		"markdown": &cfg.MarkdownReport,
	}
	for name, dst := range bools {
		if flags.Lookup(name) == nil {
			continue
		}
		if *dst, err = flags.GetBool(name); err != nil {
			return nil, err
		}
	}

	if flags.Lookup("db-dir") != nil {
		dir, err := flags.GetString("db-dir")
		if err != nil {
			return nil, err
		}
		if dir != "" {
			cfg.DBDir = dir
		}
	}
	if flags.Lookup("no-save") != nil {
		noSave, err := flags.GetBool("no-save")
		if err != nil {
			return nil, err
		}
		cfg.SaveToDB = !noSave
	}

	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// loadConfigFile applies the config file. A file named with -c must
// exist; otherwise a missing file is not an error.
func loadConfigFile(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}
	f, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	cfg.ApplyFile(f)
	return nil
}

// === Runtime ===

// setupLogger creates the masking logger selected by the config and makes
// it the default.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var logger *slog.Logger
	if cfg.LogJSON {
		logger = log.NewSecureJSONLogger(w, cfg.Verbose, log.WithReveal(cfg.Reveal))
	} else {
		logger = log.NewSecureLogger(w, cfg.Verbose, log.WithReveal(cfg.Reveal))
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// openTables reads the input tables the command needs.
func openTables(cfg *config.Config, needObserved bool) (ref, observed *population.Table, err error) {
	if ref, err = population.Open(cfg.ReferencePath); err != nil {
		return nil, nil, fmt.Errorf("reference table: %w", err)
	}
	if needObserved {
		if observed, err = population.Open(cfg.ObservedPath); err != nil {
			return nil, nil, fmt.Errorf("observed table: %w", err)
		}
	}
	return ref, observed, nil
}

// openStore opens the results store when the run is to be saved.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	store, err := database.Open(ctx, cfg.DBDir, cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.DBURL != "" {
		logger.Info("database opened", "backend", "postgres")
	} else {
		logger.Info("database opened", "dir", cfg.DBDir)
	}
	return store, nil
}

// outputReport writes the run in the requested format to the report file
// or to w.
func outputReport(cfg *config.Config, run *model.Run, w io.Writer) error {
	output := w
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports hold recovered personal data: owner-only permissions.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
	_, err := writer.Write(run)
	return err
}
