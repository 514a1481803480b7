package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/mkattack/internal/config"
	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/pipeline"
	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/profile"
	"github.com/nao1215/mkattack/internal/scheme"
)

// NewAttackCmd creates the attack command.
func NewAttackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attack",
		Short: "Recover published match-keys with a top-K dictionary attack",
		Long: `Attack enumerates every combination of the K most frequent values of each
field in the reference population, hashes it with each scheme, and looks the
digests up in the observed table.

Every scheme is graded by the share of observed rows it recovered:
  CRITICAL  >= 50%
  HIGH      >= 20%
  MEDIUM    >= 5%
  LOW       at least one record
  INFO      nothing recovered (the guess space may simply miss the population)

Examples:
  # Attack every built-in scheme
  mkattack attack -r population.csv -O published.csv

  # Attack two ONS schemes with a larger guess space on 8 goroutines
  mkattack attack -r population.csv -O published.csv -s mk1,mk8 -k 500 -w 8

  # Only check whether each scheme leaks at least one record
  mkattack attack -r population.csv -O published.csv --exists

  # Consolidate recovered records into profiles and write Markdown
  mkattack attack -r population.csv -O published.csv --profiles -m -o report.md`,
		Args: cobra.NoArgs,
		RunE: runAttackCmd,
	}

	addInputFlags(cmd)
	addSchemeFlags(cmd)
	addAttackFlags(cmd)
	cmd.Flags().BoolP("exists", "e", false,
		"Stop each scheme at its first recovered digest")
	cmd.Flags().BoolP("profiles", "p", false,
		"Consolidate recovered records into profiles")
	cmd.Flags().String("genders-from", "",
		"Population table with a gender column used to infer profile genders")
	addReportFlags(cmd)
	addStoreFlags(cmd, true)

	return cmd
}

// attackOptions are the attack command switches that have no place in
// config.Config.
type attackOptions struct {
	exists      bool
	profiles    bool
	gendersFrom string
}

func runAttackCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateInputs(true, true); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var opts attackOptions
	if opts.exists, err = cmd.Flags().GetBool("exists"); err != nil {
		return err
	}
	if opts.profiles, err = cmd.Flags().GetBool("profiles"); err != nil {
		return err
	}
	if opts.gendersFrom, err = cmd.Flags().GetString("genders-from"); err != nil {
		return err
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	run, err := runAttack(ctx, cfg, opts, logger)
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

// runAttack builds and executes the attack pipeline. The returned run is
// non-nil once the inputs were loaded, even when a step failed.
func runAttack(ctx context.Context, cfg *config.Config, opts attackOptions, logger *slog.Logger) (*model.Run, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	ref, observed, err := openTables(cfg, true)
	if err != nil {
		return nil, err
	}
	snap, err := population.NewSnapshot(ref, cfg.TopK)
	if err != nil {
		return nil, err
	}

	logger.Info("starting attack",
		"schemes", reg.Len(),
		"reference_rows", ref.Len(),
		"observed_rows", observed.Len(),
		"top_k", cfg.TopK,
		"workers", cfg.Workers,
	)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddStep(pipeline.NewAttackStep(reg, snap, observed,
		pipeline.WithAttackWorkers(cfg.Workers),
		pipeline.WithExistsOnly(opts.exists),
		pipeline.WithMaxGuessSpace(cfg.MaxGuessSpace),
		pipeline.WithAttackLogger(logger),
	))

	if opts.profiles {
		step, err := newConsolidateStep(cfg, reg, opts.gendersFrom, logger)
		if err != nil {
			return nil, err
		}
		p.AddStep(step)
	}

	if cfg.SaveToDB {
		store, err := openStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		p.AddStep(pipeline.NewPersistStep(store, logger))
	}

	run := model.NewRun(cfg.ReferencePath, cfg.ObservedPath, cfg.TopK)
	start := time.Now()
	err = p.Execute(ctx, run)
	logger.Info("attack finished", "elapsed", time.Since(start).Round(time.Millisecond), "run_id", run.ID)
	return run, err
}

// newConsolidateStep builds the profile step, with gender inference from a
// population table or from the config file's name table.
func newConsolidateStep(cfg *config.Config, reg *scheme.Registry, gendersFrom string, logger *slog.Logger) (*pipeline.ConsolidateStep, error) {
	opts := []pipeline.ConsolidateStepOption{pipeline.WithConsolidateLogger(logger)}
	switch {
	case gendersFrom != "":
		t, err := population.Open(gendersFrom)
		if err != nil {
			return nil, fmt.Errorf("gender table: %w", err)
		}
		lookup, err := profile.NewPopulationGenderLookup(t)
		if err != nil {
			return nil, fmt.Errorf("gender table: %w", err)
		}
		opts = append(opts, pipeline.WithGenderLookup(lookup))
	case cfg.Genders() != nil:
		opts = append(opts, pipeline.WithGenderLookup(profile.NewStaticGenderLookup(cfg.Genders())))
	}
	return pipeline.NewConsolidateStep(reg, opts...), nil
}
