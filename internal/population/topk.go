package population

import (
	"fmt"
	"slices"

	"github.com/nao1215/mkattack/internal/scheme"
)

// Entry is one ranked value of a distribution.
type Entry struct {
	// Value is the first raw spelling seen for Token.
	Value string
	// Token is the canonical token the entry was counted under.
	Token string
	Count int
}

// Distribution holds the most frequent values of one field in rank order:
// count descending, ties broken by first appearance.
type Distribution struct {
	Field   scheme.Field
	Entries []Entry
}

// Len returns the number of entries.
func (d Distribution) Len() int { return len(d.Entries) }

// TopK ranks values of field f and keeps the k most frequent. Values are
// counted under their canonical token, so "Anna" and "anna " are one value.
// Values with an empty token are ignored.
func TopK(f scheme.Field, values []string, k int) (Distribution, error) {
	if k < 1 {
		return Distribution{}, ErrInvalidK
	}

	type ranked struct {
		Entry
		first int
	}
	byToken := make(map[string]*ranked)
	var order []*ranked
	for i, v := range values {
		token := f.Canonical(v)
		if token == "" {
			continue
		}
		if r, ok := byToken[token]; ok {
			r.Count++
			continue
		}
		r := &ranked{Entry: Entry{Value: v, Token: token, Count: 1}, first: i}
		byToken[token] = r
		order = append(order, r)
	}

	slices.SortStableFunc(order, func(a, b *ranked) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return a.first - b.first
	})
	if len(order) > k {
		order = order[:k]
	}

	d := Distribution{Field: f, Entries: make([]Entry, len(order))}
	for i, r := range order {
		d.Entries[i] = r.Entry
	}
	return d, nil
}

// Snapshot is an immutable set of top-K distributions taken from one
// reference table. It is built once and shared read-only by every scheme.
type Snapshot struct {
	k     int
	dists map[scheme.Field]Distribution
}

// NewSnapshot ranks every field column present in t.
func NewSnapshot(t *Table, k int) (*Snapshot, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	s := &Snapshot{k: k, dists: make(map[scheme.Field]Distribution)}
	for _, f := range scheme.Fields {
		values, err := t.Column(string(f))
		if err != nil {
			continue
		}
		d, err := TopK(f, values, k)
		if err != nil {
			return nil, fmt.Errorf("rank %s: %w", f, err)
		}
		s.dists[f] = d
	}
	return s, nil
}

// SnapshotOf builds a snapshot from ready-made distributions.
func SnapshotOf(k int, dists ...Distribution) *Snapshot {
	s := &Snapshot{k: k, dists: make(map[scheme.Field]Distribution, len(dists))}
	for _, d := range dists {
		s.dists[d.Field] = d
	}
	return s
}

// K returns the bound the snapshot was taken with.
func (s *Snapshot) K() int { return s.k }

// Distribution returns the distribution of field f. An absent field yields
// an empty distribution; use Has to tell it from a column with no usable
// values.
func (s *Snapshot) Distribution(f scheme.Field) Distribution {
	if d, ok := s.dists[f]; ok {
		return d
	}
	return Distribution{Field: f}
}

// Has reports whether the reference table had a column for field f.
func (s *Snapshot) Has(f scheme.Field) bool {
	_, ok := s.dists[f]
	return ok
}

// Missing returns the fields of fs the reference table had no column for.
func (s *Snapshot) Missing(fs []scheme.Field) []scheme.Field {
	var out []scheme.Field
	for _, f := range fs {
		if !s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Fields returns the fields with a non-empty distribution.
func (s *Snapshot) Fields() []scheme.Field {
	var out []scheme.Field
	for _, f := range scheme.Fields {
		if s.dists[f].Len() > 0 {
			out = append(out, f)
		}
	}
	return out
}
