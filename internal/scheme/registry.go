package scheme

import (
	"fmt"
	"slices"
)

// Registry holds schemes by id in declaration order. A Registry is never
// mutated after construction; selection methods return new registries.
type Registry struct {
	schemes []*Scheme
	byID    map[string]*Scheme
}

// NewRegistry builds a registry. Scheme ids must be unique.
func NewRegistry(schemes ...*Scheme) (*Registry, error) {
	r := &Registry{
		schemes: make([]*Scheme, 0, len(schemes)),
		byID:    make(map[string]*Scheme, len(schemes)),
	}
	for _, s := range schemes {
		if _, dup := r.byID[s.ID()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScheme, s.ID())
		}
		r.byID[s.ID()] = s
		r.schemes = append(r.schemes, s)
	}
	return r, nil
}

// Get returns the scheme with the given id.
func (r *Registry) Get(id string) (*Scheme, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// All returns the schemes in declaration order.
func (r *Registry) All() []*Scheme {
	return slices.Clone(r.schemes)
}

// IDs returns the scheme ids in declaration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.schemes))
	for i, s := range r.schemes {
		ids[i] = s.ID()
	}
	return ids
}

// Len returns the number of schemes.
func (r *Registry) Len() int { return len(r.schemes) }

// Select returns a registry holding only the given ids, in registry order.
// An empty selection returns r itself.
func (r *Registry) Select(ids []string) (*Registry, error) {
	if len(ids) == 0 {
		return r, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, id)
		}
		want[id] = true
	}
	var selected []*Scheme
	for _, s := range r.schemes {
		if want[s.ID()] {
			selected = append(selected, s)
		}
	}
	return NewRegistry(selected...)
}

// Family returns a registry holding the schemes of one family.
func (r *Registry) Family(f Family) *Registry {
	var selected []*Scheme
	for _, s := range r.schemes {
		if s.Family() == f {
			selected = append(selected, s)
		}
	}
	out, _ := NewRegistry(selected...) // ids are already unique
	return out
}

// Merge returns a registry with the schemes of r followed by extra.
func (r *Registry) Merge(extra ...*Scheme) (*Registry, error) {
	return NewRegistry(append(r.All(), extra...)...)
}

// IssueKind classifies a registry validation issue.
type IssueKind string

const (
	// IssueMissingColumn means the scheme's target column is absent.
	IssueMissingColumn IssueKind = "missing_column"
	// IssueSharedColumn means two schemes read the same target column.
	IssueSharedColumn IssueKind = "shared_column"
)

// Issue is a problem found by Validate.
type Issue struct {
	SchemeID string
	Column   string
	Kind     IssueKind
	// Other is the scheme sharing the column, for IssueSharedColumn.
	Other string
}

// String renders the issue for logs and reports.
func (i Issue) String() string {
	if i.Kind == IssueSharedColumn {
		return fmt.Sprintf("%s reads column %q already claimed by %s", i.SchemeID, i.Column, i.Other)
	}
	return fmt.Sprintf("%s: column %q not found", i.SchemeID, i.Column)
}

// Validate checks the schemes' target columns against the columns of an
// observed table. A scheme is matched to its column or the first alias
// present. A scheme with neither, or whose column is already claimed by an
// earlier scheme, is reported.
func (r *Registry) Validate(columns []string) []Issue {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var issues []Issue
	claimed := make(map[string]string, len(r.schemes))
	has := func(c string) bool { return present[c] }
	for _, s := range r.schemes {
		col := s.ResolveColumn(has)
		if owner, ok := claimed[col]; ok {
			issues = append(issues, Issue{SchemeID: s.ID(), Column: col, Kind: IssueSharedColumn, Other: owner})
			continue
		}
		claimed[col] = s.ID()
		if !present[col] {
			issues = append(issues, Issue{SchemeID: s.ID(), Column: col, Kind: IssueMissingColumn})
		}
	}
	return issues
}
