package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/normalize"
	"github.com/nao1215/mkattack/internal/scheme"
)

var (
	// ErrUnrecognizedHit is returned for a hit whose scheme is unknown or
	// whose tuple does not match the scheme's fields.
	ErrUnrecognizedHit = errors.New("unrecognized hit shape")

	// ErrIncompleteHit is returned for a hit that does not yield a first
	// name, a last name and a year of birth.
	ErrIncompleteHit = errors.New("hit lacks first name, last name or year of birth")
)

// Consolidator folds hits into profiles. It is not safe for concurrent use.
type Consolidator struct {
	registry *scheme.Registry
	gender   GenderLookup
	logger   *slog.Logger

	// profiles is keyed by the first name, last name and year part of the
	// profile key, so a later hit carrying a dob lands on the same profile.
	profiles map[string]*model.Profile
	order    []string

	merged       int
	incomplete   int
	unrecognized int
	conflicts    int
}

// Option configures a Consolidator.
type Option func(*Consolidator)

// WithGenderLookup enables gender inference for profiles that end without
// a gender.
func WithGenderLookup(l GenderLookup) Option {
	return func(c *Consolidator) {
		c.gender = l
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consolidator) {
		c.logger = logger
	}
}

// New creates a consolidator that interprets hits with reg.
func New(reg *scheme.Registry, opts ...Option) *Consolidator {
	c := &Consolidator{
		registry: reg,
		profiles: make(map[string]*model.Profile),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Key builds a profile key from normalized core fields. dob may be empty.
func Key(firstName, lastName, year, dob string) string {
	key := baseKey(firstName, lastName, year)
	if d := normalize.Date(dob); d != "" {
		key += "_" + d
	}
	return key
}

func baseKey(firstName, lastName, year string) string {
	return strings.Join([]string{
		normalize.Normalize(firstName),
		normalize.Normalize(lastName),
		normalize.Normalize(year),
	}, "_")
}

// AddAll folds every hit, logging and counting the ones that are skipped.
func (c *Consolidator) AddAll(hits []model.Hit) {
	for _, h := range hits {
		if err := c.Add(h); err != nil {
			if errors.Is(err, ErrUnrecognizedHit) {
				c.logger.Warn("skipping hit", "scheme", h.SchemeID, "digest", h.Digest, "error", err)
			} else {
				c.logger.Debug("skipping hit", "scheme", h.SchemeID, "digest", h.Digest, "error", err)
			}
		}
	}
}

// Add folds one hit into its profile.
func (c *Consolidator) Add(h model.Hit) error {
	attrs, err := c.attributes(h)
	if err != nil {
		c.unrecognized++
		return err
	}

	fn, ln, year := attrs[model.AttrFirstName], attrs[model.AttrLastName], attrs[model.AttrYearOfBirth]
	if fn == "" || ln == "" || year == "" {
		c.incomplete++
		return fmt.Errorf("%w: scheme %s", ErrIncompleteHit, h.SchemeID)
	}
	c.merged++

	base := baseKey(fn, ln, year)
	p, ok := c.profiles[base]
	if !ok {
		p = &model.Profile{
			Key:        Key(fn, ln, year, attrs[model.AttrDOB]),
			Attributes: attrs,
			Digest:     h.Digest,
			Schemes:    []string{h.SchemeID},
		}
		c.profiles[base] = p
		c.order = append(c.order, base)
		return nil
	}

	p.AddScheme(h.SchemeID)
	for _, attr := range model.ProfileAttributes {
		v := attrs[attr]
		if v == "" {
			continue
		}
		cur := p.Attributes[attr]
		if cur == "" {
			p.Attributes[attr] = v
			continue
		}
		if normalize.Normalize(cur) == normalize.Normalize(v) {
			continue
		}
		conflict := model.Conflict{ProfileKey: p.Key, Attribute: attr, Old: cur, New: v, SchemeID: h.SchemeID}
		p.Conflicts = append(p.Conflicts, conflict)
		c.conflicts++
		c.logger.Warn("attribute conflict",
			"profile_key", p.Key,
			"attribute", attr,
			"old", cur,
			"new", v,
			"scheme", h.SchemeID,
		)
	}
	p.Key = Key(p.Attributes[model.AttrFirstName], p.Attributes[model.AttrLastName],
		p.Attributes[model.AttrYearOfBirth], p.Attributes[model.AttrDOB])
	return nil
}

// attributes maps a hit's recovered values to profile attributes through
// the scheme's declared fields.
func (c *Consolidator) attributes(h model.Hit) (map[string]string, error) {
	s, ok := c.registry.Get(h.SchemeID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrUnrecognizedHit, h.SchemeID)
	}
	if len(h.Values) != s.Len() {
		return nil, fmt.Errorf("%w: %s has %d fields, hit has %d", ErrUnrecognizedHit, s.ID(), s.Len(), len(h.Values))
	}

	attrs := make(map[string]string, len(h.Values)+1)
	for i, v := range h.Values {
		fs := s.FieldAt(i)
		if v.Field != string(fs.Field) {
			return nil, fmt.Errorf("%w: %s field %d is %s, hit has %s", ErrUnrecognizedHit, s.ID(), i, fs.Field, v.Field)
		}
		for attr, value := range plaintext(fs, v.Raw) {
			if value != "" && attrs[attr] == "" {
				attrs[attr] = value
			}
		}
	}
	return attrs, nil
}

// plaintext returns the attributes a recovered raw value reveals under a
// field spec.
func plaintext(fs scheme.FieldSpec, raw string) map[string]string {
	token := fs.Field.Canonical(raw)
	if token == "" {
		return nil
	}
	if !fs.Transform.IsIdentity() {
		// A dob prefix still gives away the year.
		if fs.Field == scheme.DOB && fs.Transform.Kind == scheme.KindPrefix && fs.Transform.N >= 4 {
			return map[string]string{model.AttrYearOfBirth: token[:4]}
		}
		return nil
	}

	switch fs.Field {
	case scheme.FirstName:
		return map[string]string{model.AttrFirstName: strings.TrimSpace(raw)}
	case scheme.LastName:
		return map[string]string{model.AttrLastName: strings.TrimSpace(raw)}
	case scheme.DOB:
		return map[string]string{
			model.AttrDOB:         token[:4] + "-" + token[4:6] + "-" + token[6:],
			model.AttrYearOfBirth: token[:4],
		}
	case scheme.YearOfBirth:
		return map[string]string{model.AttrYearOfBirth: token}
	case scheme.Zip:
		return map[string]string{model.AttrZip: token}
	case scheme.Gender:
		return map[string]string{model.AttrGender: strings.TrimSpace(raw)}
	case scheme.Email:
		return map[string]string{model.AttrEmail: strings.TrimSpace(raw)}
	case scheme.Address:
		return map[string]string{model.AttrAddress: strings.TrimSpace(raw)}
	default:
		return nil
	}
}

// Report returns the profiles in first-seen order. Gender is inferred, on
// the returned copies only, for profiles that still have none.
func (c *Consolidator) Report() *model.ProfileReport {
	r := &model.ProfileReport{
		Profiles:     make([]model.Profile, 0, len(c.order)),
		Merged:       c.merged,
		Incomplete:   c.incomplete,
		Unrecognized: c.unrecognized,
		Conflicts:    c.conflicts,
	}
	for _, base := range c.order {
		p := *c.profiles[base]
		p.Attributes = maps.Clone(p.Attributes)
		p.Schemes = slices.Clone(p.Schemes)
		p.Conflicts = slices.Clone(p.Conflicts)

		if c.gender != nil && p.Attributes[model.AttrGender] == "" {
			if g, ok := c.gender.Gender(p.Attributes[model.AttrFirstName]); ok {
				p.Attributes[model.AttrGender] = g
				p.GenderInferred = true
			}
		}
		r.Profiles = append(r.Profiles, p)
	}
	r.Total = len(r.Profiles)
	return r
}
