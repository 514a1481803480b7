package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/mkattack/internal/config"
	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/pipeline"
)

// NewProfilesCmd creates the profiles command.
func NewProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Consolidate recovered records into person profiles",
		Long: `Profiles folds recovered records into one profile per person, keyed by
first name, last name and year of birth. Each further hit fills attributes
the profile is missing; values that disagree with a known attribute are
reported as conflicts and never overwrite it.

The hits come from a stored run (--run-id) or from a fresh attack on
--reference and --observed.

Examples:
  # Consolidate the hits of stored run 3
  mkattack profiles --run-id 3

  # Attack and consolidate in one go, inferring genders from a population
  mkattack profiles -r population.csv -O published.csv --genders-from voters.csv`,
		Args: cobra.NoArgs,
		RunE: runProfilesCmd,
	}

	cmd.Flags().Int64("run-id", 0, "Consolidate the hits of a stored run")
	addInputFlags(cmd)
	addSchemeFlags(cmd)
	addAttackFlags(cmd)
	cmd.Flags().String("genders-from", "",
		"Population table with a gender column used to infer profile genders")
	addReportFlags(cmd)
	addStoreFlags(cmd, true)

	return cmd
}

func runProfilesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetInt64("run-id")
	if err != nil {
		return err
	}
	gendersFrom, err := cmd.Flags().GetString("genders-from")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var run *model.Run
	if runID > 0 {
		run, err = consolidateStoredRun(ctx, cfg, runID, gendersFrom, logger)
	} else {
		if verr := cfg.ValidateInputs(true, true); verr != nil {
			return fmt.Errorf("configuration error: %w (or use --run-id)", verr)
		}
		run, err = runAttack(ctx, cfg, attackOptions{profiles: true, gendersFrom: gendersFrom}, logger)
	}

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

// consolidateStoredRun loads a run with its hits and folds them into
// profiles. The stored run is not modified.
func consolidateStoredRun(ctx context.Context, cfg *config.Config, id int64, gendersFrom string, logger *slog.Logger) (*model.Run, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	if len(run.Hits()) == 0 {
		logger.Info("stored run has no hits", "run_id", id)
	}

	// Custom schemes must be known to interpret their hits, so the scheme
	// allow-list does not apply here.
	cfg.Schemes, cfg.Families = nil, nil
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	step, err := newConsolidateStep(cfg, reg, gendersFrom, logger)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddStep(step)
	return run, p.Execute(ctx, run)
}
