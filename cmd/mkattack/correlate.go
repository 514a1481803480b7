package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/mkattack/internal/config"
	"github.com/nao1215/mkattack/internal/correlate"
	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/pipeline"
)

// NewCorrelateCmd creates the correlate command.
func NewCorrelateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Identify the scheme behind unlabeled digest columns",
		Long: `Correlate compares the digest frequency histogram of each unlabeled column
with the histogram every scheme produces on the reference population, and
reports the best matching scheme per metric.

Without --column, every observed column whose first value is a SHA-256 hex
digest is analyzed.

Metrics:
  spearman        rank correlation (always computed)
  jensen_shannon  1 - Jensen-Shannon divergence
  cosine          cosine similarity

Examples:
  # Correlate every digest column
  mkattack correlate -r population.csv -O leaked.csv

  # Correlate one column on the union of keys with all metrics
  mkattack correlate -r population.csv -O leaked.csv --column key_a \
    --mode permissive --metric jensen_shannon,cosine`,
		Args: cobra.NoArgs,
		RunE: runCorrelateCmd,
	}

	addInputFlags(cmd)
	addSchemeFlags(cmd)
	cmd.Flags().StringSlice("column", nil,
		"Observed columns to correlate (default: every digest column)")
	cmd.Flags().String("mode", config.DefaultMode,
		"Histogram alignment: strict (shared keys) or permissive (all keys)")
	cmd.Flags().StringSlice("metric", nil,
		"Additional metrics: jensen_shannon, cosine")
	cmd.Flags().Int("min-overlap", config.DefaultMinOverlap,
		"Minimum shared digests required for a score")
	cmd.Flags().Int("min-count", config.DefaultMinCount,
		"Drop observed digests seen fewer times")
	addReportFlags(cmd)
	addStoreFlags(cmd, true)

	return cmd
}

func runCorrelateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateInputs(true, true); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	columns, err := cmd.Flags().GetStringSlice("column")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	run, err := runCorrelate(ctx, cfg, columns, logger)
	if run != nil {
		if rerr := outputReport(cfg, run, cmd.OutOrStdout()); rerr != nil {
			logger.Error("report failed", "error", rerr)
			if err == nil {
				err = rerr
			}
		}
	}
	return err
}

// newCorrelateEngine maps the config onto engine options.
func newCorrelateEngine(cfg *config.Config, logger *slog.Logger) *correlate.Engine {
	metrics := make([]model.Metric, len(cfg.Metrics))
	for i, m := range cfg.Metrics {
		metrics[i] = model.Metric(m)
	}
	return correlate.New(
		correlate.WithMode(correlate.Mode(cfg.Mode)),
		correlate.WithMinOverlap(cfg.MinOverlap),
		correlate.WithMinCount(cfg.MinCount),
		correlate.WithMetrics(metrics...),
		correlate.WithLogger(logger),
	)
}

func runCorrelate(ctx context.Context, cfg *config.Config, columns []string, logger *slog.Logger) (*model.Run, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	ref, observed, err := openTables(cfg, true)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(pipeline.NewCorrelateStep(reg, ref, observed, newCorrelateEngine(cfg, logger),
		pipeline.WithColumns(columns...),
		pipeline.WithCorrelateLogger(logger),
	))

	if cfg.SaveToDB {
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		p.AddStep(pipeline.NewPersistStep(store, logger))
	}

	run := model.NewRun(cfg.ReferencePath, cfg.ObservedPath, 0)
	return run, p.Execute(ctx, run)
}
