package profile

import (
	"fmt"
	"strings"

	"github.com/nao1215/mkattack/internal/normalize"
	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/scheme"
)

// GenderLookup infers a gender from a first name.
type GenderLookup interface {
	Gender(firstName string) (string, bool)
}

// StaticGenderLookup is a fixed name to gender table keyed by normalized
// first name.
type StaticGenderLookup map[string]string

// NewStaticGenderLookup builds a lookup from a name to gender map as found
// in the config file.
func NewStaticGenderLookup(names map[string]string) StaticGenderLookup {
	l := make(StaticGenderLookup, len(names))
	for name, g := range names {
		if key := normalize.Normalize(name); key != "" && strings.TrimSpace(g) != "" {
			l[key] = strings.TrimSpace(g)
		}
	}
	return l
}

// Gender implements GenderLookup.
func (l StaticGenderLookup) Gender(firstName string) (string, bool) {
	g, ok := l[normalize.Normalize(firstName)]
	return g, ok
}

// PopulationGenderLookup infers gender from the most frequent gender of a
// first name in a reference population. Ties go to the gender seen first.
type PopulationGenderLookup struct {
	majority map[string]string
}

// NewPopulationGenderLookup counts genders per first name in t.
func NewPopulationGenderLookup(t *population.Table) (*PopulationGenderLookup, error) {
	for _, f := range []scheme.Field{scheme.FirstName, scheme.Gender} {
		if !t.Has(string(f)) {
			return nil, fmt.Errorf("%w: %s", population.ErrMissingColumn, f)
		}
	}

	type tally struct {
		counts map[string]int
		order  []string
	}
	byName := make(map[string]*tally)
	for i := range t.Len() {
		name := normalize.Normalize(t.Value(i, string(scheme.FirstName)))
		g := strings.TrimSpace(t.Value(i, string(scheme.Gender)))
		if name == "" || g == "" {
			continue
		}
		tl, ok := byName[name]
		if !ok {
			tl = &tally{counts: make(map[string]int)}
			byName[name] = tl
		}
		if tl.counts[g] == 0 {
			tl.order = append(tl.order, g)
		}
		tl.counts[g]++
	}

	l := &PopulationGenderLookup{majority: make(map[string]string, len(byName))}
	for name, tl := range byName {
		best := tl.order[0]
		for _, g := range tl.order[1:] {
			if tl.counts[g] > tl.counts[best] {
				best = g
			}
		}
		l.majority[name] = best
	}
	return l, nil
}

// Gender implements GenderLookup.
func (l *PopulationGenderLookup) Gender(firstName string) (string, bool) {
	g, ok := l.majority[normalize.Normalize(firstName)]
	return g, ok
}
