package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/scheme"
)

// SchemeFunc produces the result of one scheme.
type SchemeFunc func(ctx context.Context, s *scheme.Scheme) (model.SchemeResult, error)

// BatchProcessor runs a SchemeFunc over many schemes concurrently.
//
// Design decision: a scheme that fails becomes a skipped result carrying
// the error text instead of failing the batch, so one bad scheme never
// hides the others.
type BatchProcessor struct {
	fn SchemeFunc

	// concurrency is the maximum number of schemes processed at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent schemes.
// Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor around fn.
func NewBatchProcessor(fn SchemeFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{fn: fn, concurrency: 1}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch returns one result per scheme, in the order given.
//
// The error is non-nil only when ctx was cancelled; schemes that never
// started are then reported as skipped.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, schemes []*scheme.Scheme) ([]model.SchemeResult, error) {
	bp.logger.Info("starting batch processing",
		"schemes", len(schemes),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	results := make([]model.SchemeResult, len(schemes))
	done := make([]bool, len(schemes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, s := range schemes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := bp.fn(gctx, s)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				bp.logger.Warn("scheme skipped", "scheme", s.ID(), "error", err)
				res = model.SkippedResult(s.ID(), s.Column(), err.Error())
				res.Family = string(s.Family())
				res.Label = s.Label()
			} else {
				bp.logger.Info("scheme complete",
					"scheme", s.ID(),
					"index", i+1,
					"total", len(schemes),
					"hits", res.HitCount,
				)
			}

			// Each goroutine owns its slot.
			results[i] = res
			done[i] = true
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		for i, s := range schemes {
			if !done[i] {
				results[i] = model.SkippedResult(s.ID(), s.Column(), "cancelled")
			}
		}
	}

	bp.logger.Info("batch processing complete",
		"schemes", len(schemes),
		"elapsed", time.Since(startTime),
	)
	return results, err
}
