package guess

import (
	"iter"
	"math"

	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/scheme"
)

// Candidate is one value of a field candidate list.
type Candidate struct {
	// Raw is the representative raw value from the reference population.
	Raw string
	// Token is the transformed token that enters the digest.
	Token string
}

// Tuple is one guess: a candidate per scheme field, in scheme order.
type Tuple []Candidate

// Tokens returns the tokens of the tuple.
func (t Tuple) Tokens() []string {
	out := make([]string, len(t))
	for i, c := range t {
		out[i] = c.Token
	}
	return out
}

// Generator enumerates the guess space of one scheme. It is immutable and
// its iterators can be consumed any number of times.
type Generator struct {
	scheme *scheme.Scheme
	lists  [][]Candidate
}

// New builds the candidate lists of s from the snapshot.
func New(s *scheme.Scheme, snap *population.Snapshot) *Generator {
	lists := make([][]Candidate, s.Len())
	for i := range s.Len() {
		lists[i] = candidates(s, i, snap.Distribution(s.FieldAt(i).Field), snap.K())
	}
	return &Generator{scheme: s, lists: lists}
}

// candidates applies field i's transform to the ranked base values,
// de-duplicating in rank order and capping at k.
func candidates(s *scheme.Scheme, i int, d population.Distribution, k int) []Candidate {
	seen := make(map[string]bool, d.Len())
	out := make([]Candidate, 0, min(d.Len(), k))
	for _, e := range d.Entries {
		if len(out) == k {
			break
		}
		token := s.Token(i, e.Value)
		if token == "" || seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, Candidate{Raw: e.Value, Token: token})
	}
	return out
}

// Scheme returns the scheme being enumerated.
func (g *Generator) Scheme() *scheme.Scheme { return g.scheme }

// Candidates returns the candidate list of field i.
func (g *Generator) Candidates(i int) []Candidate {
	return append([]Candidate(nil), g.lists[i]...)
}

// Size returns the number of guesses: the product of the list lengths.
// It is zero when any field has no candidates and saturates at
// math.MaxInt when the product does not fit in an int.
func (g *Generator) Size() int {
	if len(g.lists) == 0 {
		return 0
	}
	n, saturated := 1, false
	for _, l := range g.lists {
		m := len(l)
		if m == 0 {
			return 0
		}
		if saturated {
			continue
		}
		if n > math.MaxInt/m {
			saturated = true
			continue
		}
		n *= m
	}
	if saturated {
		return math.MaxInt
	}
	return n
}

// All yields every guess with its digest, first field outermost. Each
// yielded Tuple is freshly allocated and may be retained by the caller.
func (g *Generator) All() iter.Seq2[string, Tuple] {
	return func(yield func(string, Tuple) bool) {
		if g.Size() == 0 {
			return
		}
		idx := make([]int, len(g.lists))
		tokens := make([]string, len(g.lists))
		for {
			tuple := make(Tuple, len(g.lists))
			for i, l := range g.lists {
				tuple[i] = l[idx[i]]
				tokens[i] = tuple[i].Token
			}
			if !yield(scheme.Digest(tokens...), tuple) {
				return
			}

			// Advance the odometer, innermost field fastest.
			pos := len(idx) - 1
			for pos >= 0 {
				idx[pos]++
				if idx[pos] < len(g.lists[pos]) {
					break
				}
				idx[pos] = 0
				pos--
			}
			if pos < 0 {
				return
			}
		}
	}
}

// Shards splits the guess space by the candidates of the first field. The
// concatenation of the shards' enumerations equals All.
func (g *Generator) Shards() []*Generator {
	if g.Size() == 0 {
		return nil
	}
	shards := make([]*Generator, len(g.lists[0]))
	for i, c := range g.lists[0] {
		lists := make([][]Candidate, len(g.lists))
		copy(lists, g.lists)
		lists[0] = []Candidate{c}
		shards[i] = &Generator{scheme: g.scheme, lists: lists}
	}
	return shards
}
