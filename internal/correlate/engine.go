package correlate

import (
	"context"
	"log/slog"

	"github.com/nao1215/mkattack/internal/model"
)

// DefaultMinOverlap is the minimum number of shared digests required
// before any score is computed.
const DefaultMinOverlap = 3

// Column is an unlabeled digest column.
type Column struct {
	Name    string
	Digests []string
}

// Engine scores unlabeled columns against candidate schemes.
type Engine struct {
	mode       Mode
	minOverlap int
	minCount   int
	metrics    []model.Metric
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode sets the alignment mode. Default is Strict.
func WithMode(m Mode) Option {
	return func(e *Engine) {
		if m == Strict || m == Permissive {
			e.mode = m
		}
	}
}

// WithMinOverlap sets the minimum number of shared keys.
func WithMinOverlap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minOverlap = n
		}
	}
}

// WithMinCount drops unlabeled digests seen fewer than n times.
func WithMinCount(n int) Option {
	return func(e *Engine) {
		e.minCount = n
	}
}

// WithMetrics selects the metrics to compute. Spearman is always computed.
func WithMetrics(metrics ...model.Metric) Option {
	return func(e *Engine) {
		e.metrics = []model.Metric{model.MetricSpearman}
		for _, m := range metrics {
			if m == model.MetricJensenShannon || m == model.MetricCosine {
				e.metrics = append(e.metrics, m)
			}
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine. By default it aligns strictly, requires three
// shared keys and computes every metric.
func New(opts ...Option) *Engine {
	e := &Engine{
		mode:       Strict,
		minOverlap: DefaultMinOverlap,
		metrics:    model.Metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Score compares an unlabeled histogram with one candidate. It returns no
// scores when the histograms share fewer than the minimum overlap; an
// undefined metric is omitted.
func (e *Engine) Score(column string, h Histogram, c Candidate) []model.CorrelationScore {
	x, y, shared := Align(h, c.Histogram, e.mode)
	if shared < e.minOverlap {
		e.logger.Debug("insufficient overlap",
			"column", column, "scheme", c.SchemeID, "shared", shared, "required", e.minOverlap)
		return nil
	}

	var scores []model.CorrelationScore
	for _, m := range e.metrics {
		var v float64
		var ok bool
		switch m {
		case model.MetricSpearman:
			v, ok = Spearman(x, y)
		case model.MetricJensenShannon:
			v, ok = JensenShannon(x, y)
		case model.MetricCosine:
			v, ok = Cosine(x, y)
		}
		if !ok {
			continue
		}
		scores = append(scores, model.CorrelationScore{
			Column:   column,
			SchemeID: c.SchemeID,
			Metric:   m,
			Value:    v,
			Overlap:  shared,
		})
	}
	return scores
}

// Analyze scores every column against every candidate and keeps the best
// positive score per metric. Candidates are visited in order; on equal
// scores the earlier candidate wins.
func (e *Engine) Analyze(ctx context.Context, columns []Column, candidates []Candidate) (*model.CorrelationReport, error) {
	report := &model.CorrelationReport{Mode: string(e.mode), MinOverlap: e.minOverlap}
	for _, col := range columns {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		h := FromColumn(col.Digests).Filter(e.minCount)
		cc := model.ColumnCorrelation{Column: col.Name, Distinct: len(h)}

		best := make(map[model.Metric]model.CorrelationScore)
		for _, c := range candidates {
			for _, s := range e.Score(col.Name, h, c) {
				cc.Scores = append(cc.Scores, s)
				if s.Value <= 0 {
					continue
				}
				if cur, ok := best[s.Metric]; !ok || s.Value > cur.Value {
					best[s.Metric] = s
				}
			}
		}
		for _, m := range model.Metrics {
			if s, ok := best[m]; ok {
				cc.Best = append(cc.Best, s)
			}
		}
		report.Columns = append(report.Columns, cc)
	}
	return report, nil
}
