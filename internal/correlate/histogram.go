package correlate

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/scheme"
)

// ErrMissingColumn is returned when the reference table lacks a column a
// scheme reads.
var ErrMissingColumn = errors.New("reference table lacks a scheme field")

// Histogram counts occurrences of each digest.
type Histogram map[string]int

// FromColumn counts the non-empty digests of a column.
func FromColumn(digests []string) Histogram {
	h := make(Histogram)
	for _, raw := range digests {
		if d := strings.ToLower(strings.TrimSpace(raw)); d != "" {
			h[d]++
		}
	}
	return h
}

// Filter returns the entries whose count is at least minCount.
func (h Histogram) Filter(minCount int) Histogram {
	if minCount <= 1 {
		return h
	}
	out := make(Histogram, len(h))
	for k, v := range h {
		if v >= minCount {
			out[k] = v
		}
	}
	return out
}

// Keys returns the digests in sorted order.
func (h Histogram) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Reference hashes the reference table with s. Rows with any empty scheme
// token are dropped, and rows repeating the raw values of the scheme's
// fields are counted once.
func Reference(s *scheme.Scheme, t *population.Table) (Histogram, error) {
	fields := s.BaseFields()
	for _, f := range fields {
		if !t.Has(string(f)) {
			return nil, fmt.Errorf("%w: %s needs %s", ErrMissingColumn, s.ID(), f)
		}
	}

	h := make(Histogram)
	seen := make(map[string]bool, t.Len())
	for i := range t.Len() {
		row := t.Row(i)
		key := rowKey(row, fields)
		if seen[key] {
			continue
		}
		seen[key] = true

		tokens, complete := s.Tokens(row)
		if !complete {
			continue
		}
		h[scheme.Digest(tokens...)]++
	}
	return h, nil
}

// rowKey joins the raw values of fields with a unit separator.
func rowKey(row scheme.Row, fields []scheme.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = row[f]
	}
	return strings.Join(parts, "\x1f")
}

// Candidate is a scheme with its reference histogram.
type Candidate struct {
	SchemeID  string
	Histogram Histogram
}

// References computes the reference histogram of every scheme in reg.
// Schemes whose fields are missing from the table are skipped with a
// warning and returned in skipped.
func References(reg *scheme.Registry, t *population.Table, logger *slog.Logger) (candidates []Candidate, skipped []string) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, s := range reg.All() {
		h, err := Reference(s, t)
		if err != nil {
			logger.Warn("skipping scheme for correlation", "scheme", s.ID(), "error", err)
			skipped = append(skipped, s.ID())
			continue
		}
		candidates = append(candidates, Candidate{SchemeID: s.ID(), Histogram: h})
	}
	return candidates, skipped
}
