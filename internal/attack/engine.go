package attack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/mkattack/internal/guess"
	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/scheme"
)

// cancelCheckInterval is how many guesses are enumerated between context
// checks.
const cancelCheckInterval = 4096

// DefaultMaxGuessSpace is the largest guess space an engine enumerates
// unless WithMaxGuessSpace says otherwise.
const DefaultMaxGuessSpace = 1_000_000_000

// maxPrealloc caps the reverse index capacity reserved up front.
const maxPrealloc = 1 << 20

// ErrGuessSpaceTooLarge is returned when a scheme's guess space exceeds
// the engine's limit.
var ErrGuessSpaceTooLarge = errors.New("guess space exceeds limit")

// Index maps a digest to the guess that produced it.
type Index map[string]guess.Tuple

// Engine attacks the digests of one scheme.
type Engine struct {
	gen      *guess.Generator
	workers  int
	maxSpace int
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the number of shards enumerated concurrently by
// RunSharded. Default is 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxGuessSpace sets the largest guess space the engine enumerates.
func WithMaxGuessSpace(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSpace = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine over a guess space.
func New(gen *guess.Generator, opts ...Option) *Engine {
	e := &Engine{gen: gen, workers: 1, maxSpace: DefaultMaxGuessSpace}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// CheckSize returns ErrGuessSpaceTooLarge when the guess space is above
// the engine's limit.
func (e *Engine) CheckSize() error {
	if size := e.gen.Size(); size > e.maxSpace {
		return fmt.Errorf("%w: scheme %s has %d guesses, limit is %d",
			ErrGuessSpaceTooLarge, e.gen.Scheme().ID(), size, e.maxSpace)
	}
	return nil
}

// BuildIndex enumerates the whole guess space into a reverse index. When two
// guesses share a digest the later one wins.
func (e *Engine) BuildIndex(ctx context.Context) (Index, error) {
	if err := e.CheckSize(); err != nil {
		return nil, err
	}
	idx := make(Index, min(e.gen.Size(), maxPrealloc))
	n := 0
	for d, tuple := range e.gen.All() {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		n++
		idx[d] = tuple
	}
	return idx, nil
}

// Run attacks the observed digests sequentially. Every observed digest
// present in the index yields a hit, duplicates included.
func (e *Engine) Run(ctx context.Context, observed []string) (model.SchemeResult, error) {
	start := time.Now()
	idx, err := e.BuildIndex(ctx)
	if err != nil {
		return model.SchemeResult{}, err
	}
	res := e.assemble(observed, idx)
	res.Duration = time.Since(start)
	return res, nil
}

// RunSharded attacks the observed digests with the guess space split by
// the first field's candidates. Each shard keeps only the guesses whose
// digest was observed. The result equals Run's.
func (e *Engine) RunSharded(ctx context.Context, observed []string) (model.SchemeResult, error) {
	start := time.Now()
	if err := e.CheckSize(); err != nil {
		return model.SchemeResult{}, err
	}
	want := digestSet(observed)
	shards := e.gen.Shards()
	found := make([]Index, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, shard := range shards {
		g.Go(func() error {
			matches := make(Index)
			n := 0
			for d, tuple := range shard.All() {
				if n%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				n++
				if _, ok := want[d]; ok {
					matches[d] = tuple
				}
			}
			// Each goroutine owns its slot.
			found[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.SchemeResult{}, err
	}

	// Later shards overwrite earlier ones, as later guesses do in Run.
	merged := make(Index)
	for _, matches := range found {
		for d, tuple := range matches {
			merged[d] = tuple
		}
	}

	res := e.assemble(observed, merged)
	res.Duration = time.Since(start)
	e.logger.Debug("sharded attack complete",
		"scheme", e.gen.Scheme().ID(),
		"shards", len(shards),
		"workers", e.workers,
	)
	return res, nil
}

// Exists reports the first observed digest found in the guess space. It
// stops enumerating as soon as one is found.
func (e *Engine) Exists(ctx context.Context, observed []string) (model.Hit, bool, error) {
	if err := e.CheckSize(); err != nil {
		return model.Hit{}, false, err
	}
	want := digestSet(observed)
	if len(want) == 0 {
		return model.Hit{}, false, nil
	}
	n := 0
	for d, tuple := range e.gen.All() {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return model.Hit{}, false, err
			}
		}
		n++
		if _, ok := want[d]; ok {
			return NewHit(e.gen.Scheme(), d, tuple), true, nil
		}
	}
	return model.Hit{}, false, nil
}

// assemble builds the per-scheme result from the observed column and the
// recovered digests.
func (e *Engine) assemble(observed []string, recovered Index) model.SchemeResult {
	s := e.gen.Scheme()
	res := model.SchemeResult{
		SchemeID:   s.ID(),
		Family:     string(s.Family()),
		Label:      s.Label(),
		Column:     s.Column(),
		GuessSpace: e.gen.Size(),
	}

	distinct := make(map[string]bool)
	for _, raw := range observed {
		d := canonicalDigest(raw)
		if d == "" {
			continue
		}
		res.Observed++
		tuple, ok := recovered[d]
		if _, seen := distinct[d]; !seen {
			distinct[d] = ok
			if ok {
				res.DistinctRecovered++
			}
		}
		if ok {
			res.Hits = append(res.Hits, NewHit(s, d, tuple))
		}
	}
	res.HitCount = len(res.Hits)
	res.DistinctObserved = len(distinct)
	res.Uncovered = res.DistinctObserved - res.DistinctRecovered
	res.Grade()

	e.logger.Debug("attack complete",
		"scheme", s.ID(),
		"guess_space", res.GuessSpace,
		"observed", res.Observed,
		"hits", res.HitCount,
	)
	return res
}

// NewHit converts a recovered guess into a typed hit record.
func NewHit(s *scheme.Scheme, digest string, tuple guess.Tuple) model.Hit {
	values := make([]model.FieldValue, len(tuple))
	for i, c := range tuple {
		fs := s.FieldAt(i)
		values[i] = model.FieldValue{
			Field:     string(fs.Field),
			Transform: fs.Transform.String(),
			Raw:       c.Raw,
			Token:     c.Token,
		}
	}
	return model.Hit{SchemeID: s.ID(), Digest: digest, Values: values}
}

func digestSet(observed []string) map[string]struct{} {
	set := make(map[string]struct{}, len(observed))
	for _, raw := range observed {
		if d := canonicalDigest(raw); d != "" {
			set[d] = struct{}{}
		}
	}
	return set
}

// canonicalDigest trims and lowercases an observed cell.
func canonicalDigest(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
