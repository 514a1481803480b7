package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nao1215/mkattack/internal/attack"
	"github.com/nao1215/mkattack/internal/correlate"
	"github.com/nao1215/mkattack/internal/database"
	"github.com/nao1215/mkattack/internal/guess"
	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/profile"
	"github.com/nao1215/mkattack/internal/scheme"
)

// Stage names recorded in model.Run.PerformedStages.
const (
	StageAttack    = "attack"
	StageCorrelate = "correlate"
	StageProfiles  = "profiles"
	StagePersist   = "persist"
)

// ErrNoDigestColumns is returned when the observed table has no column
// that holds digests.
var ErrNoDigestColumns = errors.New("no digest columns in observed table")

// === Attack ===

// AttackStep runs the dictionary attack for every scheme of a registry
// against its target column of the observed table.
type AttackStep struct {
	registry *scheme.Registry
	snapshot *population.Snapshot
	observed *population.Table

	// workers bounds the schemes attacked at once. Spare workers shard
	// each scheme's guess space.
	workers int

	// existsOnly stops each scheme at its first hit.
	existsOnly bool

	// maxGuessSpace skips schemes with a larger guess space.
	maxGuessSpace int

	logger *slog.Logger
}

// AttackStepOption configures an AttackStep.
type AttackStepOption func(*AttackStep)

// WithAttackWorkers sets the number of goroutines used by the attack.
func WithAttackWorkers(n int) AttackStepOption {
	return func(s *AttackStep) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithExistsOnly switches the attack to existence checks, which stop at
// the first recovered digest of each scheme.
func WithExistsOnly(existsOnly bool) AttackStepOption {
	return func(s *AttackStep) {
		s.existsOnly = existsOnly
	}
}

// WithMaxGuessSpace sets the largest guess space attacked per scheme.
func WithMaxGuessSpace(n int) AttackStepOption {
	return func(s *AttackStep) {
		if n > 0 {
			s.maxGuessSpace = n
		}
	}
}

// WithAttackLogger sets a custom logger for the attack step.
func WithAttackLogger(logger *slog.Logger) AttackStepOption {
	return func(s *AttackStep) {
		s.logger = logger
	}
}

// NewAttackStep creates an attack step over a top-K snapshot of the
// reference population.
func NewAttackStep(reg *scheme.Registry, snap *population.Snapshot, observed *population.Table, opts ...AttackStepOption) *AttackStep {
	s := &AttackStep{
		registry: reg,
		snapshot: snap,
		observed: observed,
		workers:  1,
		logger:   slog.Default(),

		maxGuessSpace: attack.DefaultMaxGuessSpace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AttackStep) Name() string { return StageAttack }

// Do validates the scheme columns, then attacks every scheme.
func (s *AttackStep) Do(ctx context.Context, run *model.Run) error {
	for _, issue := range s.registry.Validate(s.observed.Columns()) {
		s.logger.Warn("scheme column issue", "scheme", issue.SchemeID, "column", issue.Column, "kind", string(issue.Kind))
		run.Issues = append(run.Issues, issue.String())
	}

	schemes := s.registry.All()
	bp := NewBatchProcessor(s.attackScheme,
		WithConcurrency(s.workers),
		WithBatchLogger(s.logger),
	)
	results, err := bp.ProcessBatch(ctx, schemes)
	run.Attack = results
	return err
}

// shardWorkers is the share of workers each scheme gets for sharding.
func (s *AttackStep) shardWorkers() int {
	n := s.registry.Len()
	if n == 0 || s.workers <= n {
		return 1
	}
	return s.workers / n
}

func (s *AttackStep) attackScheme(ctx context.Context, sch *scheme.Scheme) (model.SchemeResult, error) {
	column := sch.ResolveColumn(s.observed.Has)
	observed, err := s.observed.Column(column)
	if err != nil {
		return model.SchemeResult{}, err
	}

	if missing := s.snapshot.Missing(sch.BaseFields()); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = string(f)
		}
		return model.SchemeResult{}, fmt.Errorf("%w: reference table lacks %s",
			population.ErrMissingColumn, strings.Join(names, ", "))
	}

	gen := guess.New(sch, s.snapshot)
	if gen.Size() == 0 {
		s.logger.Warn("empty guess space", "scheme", sch.ID())
	}
	eng := attack.New(gen,
		attack.WithWorkers(s.shardWorkers()),
		attack.WithMaxGuessSpace(s.maxGuessSpace),
		attack.WithLogger(s.logger),
	)
	if err := eng.CheckSize(); err != nil {
		return model.SchemeResult{}, err
	}

	var res model.SchemeResult
	switch {
	case s.existsOnly:
		res, err = s.exists(ctx, eng, gen, observed)
	case s.shardWorkers() > 1:
		res, err = eng.RunSharded(ctx, observed)
	default:
		res, err = eng.Run(ctx, observed)
	}
	if err != nil {
		return model.SchemeResult{}, err
	}
	res.Column = column
	return res, nil
}

// exists reports whether any digest of the column is recoverable. The
// result carries at most one hit and no recovery rate.
func (s *AttackStep) exists(ctx context.Context, eng *attack.Engine, gen *guess.Generator, observed []string) (model.SchemeResult, error) {
	start := time.Now()
	sch := gen.Scheme()
	res := model.SchemeResult{
		SchemeID:   sch.ID(),
		Family:     string(sch.Family()),
		Label:      sch.Label(),
		Column:     sch.Column(),
		GuessSpace: gen.Size(),
	}
	distinct := make(map[string]struct{})
	for _, d := range observed {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		res.Observed++
		distinct[d] = struct{}{}
	}
	res.DistinctObserved = len(distinct)

	hit, found, err := eng.Exists(ctx, observed)
	if err != nil {
		return model.SchemeResult{}, err
	}
	res.Risk = model.SeverityInfo
	if found {
		res.Hits = []model.Hit{hit}
		res.HitCount = 1
		res.DistinctRecovered = 1
		res.Risk = model.SeverityLow
	}
	res.RiskText = res.Risk.String()
	res.Duration = time.Since(start)
	return res, nil
}

// === Correlate ===

// CorrelateStep scores unlabeled digest columns against the reference
// histograms of every scheme.
type CorrelateStep struct {
	registry  *scheme.Registry
	reference *population.Table
	observed  *population.Table
	engine    *correlate.Engine

	// columns restricts the step to these observed columns. Empty means
	// every column holding digests.
	columns []string

	logger *slog.Logger
}

// CorrelateStepOption configures a CorrelateStep.
type CorrelateStepOption func(*CorrelateStep)

// WithColumns selects the observed columns to correlate.
func WithColumns(columns ...string) CorrelateStepOption {
	return func(s *CorrelateStep) {
		s.columns = columns
	}
}

// WithCorrelateLogger sets a custom logger for the correlation step.
func WithCorrelateLogger(logger *slog.Logger) CorrelateStepOption {
	return func(s *CorrelateStep) {
		s.logger = logger
	}
}

// NewCorrelateStep creates a correlation step.
func NewCorrelateStep(reg *scheme.Registry, reference, observed *population.Table, engine *correlate.Engine, opts ...CorrelateStepOption) *CorrelateStep {
	s := &CorrelateStep{
		registry:  reg,
		reference: reference,
		observed:  observed,
		engine:    engine,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CorrelateStep) Name() string { return StageCorrelate }

// Do builds the reference histograms and analyzes the selected columns.
func (s *CorrelateStep) Do(ctx context.Context, run *model.Run) error {
	columns, err := s.digestColumns()
	if err != nil {
		return err
	}

	candidates, skipped := correlate.References(s.registry, s.reference, s.logger)
	report, err := s.engine.Analyze(ctx, columns, candidates)
	if report != nil {
		report.SkippedSchemes = skipped
		run.Correlation = report
	}
	return err
}

// digestColumns returns the requested columns, or every observed column
// whose first non-empty cell is a digest.
func (s *CorrelateStep) digestColumns() ([]correlate.Column, error) {
	if len(s.columns) > 0 {
		out := make([]correlate.Column, 0, len(s.columns))
		for _, name := range s.columns {
			col := population.ColumnName(name, false)
			values, err := s.observed.Column(col)
			if err != nil {
				return nil, err
			}
			out = append(out, correlate.Column{Name: col, Digests: values})
		}
		return out, nil
	}

	var out []correlate.Column
	for _, name := range s.observed.Columns() {
		values, err := s.observed.Column(name)
		if err != nil {
			return nil, err
		}
		if firstIsDigest(values) {
			out = append(out, correlate.Column{Name: name, Digests: values})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoDigestColumns
	}
	return out, nil
}

func firstIsDigest(values []string) bool {
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		return scheme.IsDigest(v)
	}
	return false
}

// === Profiles ===

// ConsolidateStep folds the run's hits into profiles.
type ConsolidateStep struct {
	registry *scheme.Registry
	gender   profile.GenderLookup
	logger   *slog.Logger
}

// ConsolidateStepOption configures a ConsolidateStep.
type ConsolidateStepOption func(*ConsolidateStep)

// WithGenderLookup enables gender inference.
func WithGenderLookup(l profile.GenderLookup) ConsolidateStepOption {
	return func(s *ConsolidateStep) {
		s.gender = l
	}
}

// WithConsolidateLogger sets a custom logger for the consolidation step.
func WithConsolidateLogger(logger *slog.Logger) ConsolidateStepOption {
	return func(s *ConsolidateStep) {
		s.logger = logger
	}
}

// NewConsolidateStep creates a consolidation step. reg must know every
// scheme the hits came from.
func NewConsolidateStep(reg *scheme.Registry, opts ...ConsolidateStepOption) *ConsolidateStep {
	s := &ConsolidateStep{registry: reg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ConsolidateStep) Name() string { return StageProfiles }

// Do consolidates run.Hits into run.Profiles.
func (s *ConsolidateStep) Do(_ context.Context, run *model.Run) error {
	opts := []profile.Option{profile.WithLogger(s.logger)}
	if s.gender != nil {
		opts = append(opts, profile.WithGenderLookup(s.gender))
	}
	c := profile.New(s.registry, opts...)
	c.AddAll(run.Hits())
	run.Profiles = c.Report()

	s.logger.Info("profiles consolidated",
		"profiles", run.Profiles.Total,
		"merged", run.Profiles.Merged,
		"incomplete", run.Profiles.Incomplete,
		"unrecognized", run.Profiles.Unrecognized,
	)
	return nil
}

// === Persist ===

// PersistStep saves the run to a results store.
type PersistStep struct {
	store  database.Store
	logger *slog.Logger
}

// NewPersistStep creates a persistence step.
func NewPersistStep(store database.Store, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string { return StagePersist }

// Do stamps the finish time and saves the run, setting run.ID.
func (s *PersistStep) Do(ctx context.Context, run *model.Run) error {
	run.FinishedAt = time.Now()
	id, err := s.store.SaveRun(ctx, run)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	s.logger.Info("run saved", "run_id", id)
	return nil
}
