package scheme

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nao1215/mkattack/internal/normalize"
)

// DigestLength is the length of a hex encoded match-key digest.
const DigestLength = sha256.Size * 2

// Family groups related schemes.
type Family string

// Scheme families.
const (
	FamilyONS     Family = "ons"
	FamilyRandall Family = "randall"
	FamilyCustom  Family = "custom"
)

// FieldSpec is one (field, transform) pair of a scheme.
type FieldSpec struct {
	Field     Field
	Transform Transform
}

// On returns a FieldSpec for f with transform t.
func On(f Field, t Transform) FieldSpec {
	return FieldSpec{Field: f, Transform: t}
}

// Plain returns a FieldSpec for f with the identity transform.
func Plain(f Field) FieldSpec {
	return FieldSpec{Field: f, Transform: Identity()}
}

// String renders the spec as "field" or "field:transform".
func (fs FieldSpec) String() string {
	if fs.Transform.IsIdentity() {
		return string(fs.Field)
	}
	return string(fs.Field) + ":" + fs.Transform.String()
}

// Row is one record of quasi-identifiers keyed by field type.
type Row map[Field]string

// Scheme is an immutable match-key definition.
type Scheme struct {
	id      string
	family  Family
	label   string
	column  string
	aliases []string
	fields  []FieldSpec
}

// Option configures a Scheme at definition time.
type Option func(*Scheme)

// WithFamily sets the scheme family.
func WithFamily(f Family) Option {
	return func(s *Scheme) { s.family = f }
}

// WithLabel sets a human readable description.
func WithLabel(label string) Option {
	return func(s *Scheme) { s.label = label }
}

// WithColumn sets the observed table column holding this scheme's digests.
// The default is the scheme id.
func WithColumn(column string) Option {
	return func(s *Scheme) { s.column = column }
}

// WithAliases sets alternative observed column names, tried in order when
// the table has no column named after the scheme.
func WithAliases(names ...string) Option {
	return func(s *Scheme) { s.aliases = append(s.aliases, names...) }
}

// Define builds a Scheme. Fields are evaluated in the given order.
func Define(id string, fields []FieldSpec, opts ...Option) (*Scheme, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptySchemeID
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFields, id)
	}
	for _, fs := range fields {
		if !fs.Field.Valid() {
			return nil, fmt.Errorf("%w: %q in scheme %s", ErrUnknownField, fs.Field, id)
		}
		if fs.Transform.Kind == KindPrefix && fs.Transform.N < 1 {
			return nil, fmt.Errorf("%w: scheme %s", ErrInvalidPrefix, id)
		}
	}

	s := &Scheme{
		id:     id,
		family: FamilyCustom,
		column: id,
		fields: append([]FieldSpec(nil), fields...),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.column = columnName(s.column)
	if s.column == "" {
		s.column = id
	}
	aliases := s.aliases[:0:0]
	for _, a := range s.aliases {
		if a = columnName(a); a != "" && a != s.column {
			aliases = append(aliases, a)
		}
	}
	s.aliases = aliases
	return s, nil
}

func columnName(c string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c)), " ", "_")
}

// MustDefine is like Define but panics on error. It is meant for
// package level declarations.
func MustDefine(id string, fields []FieldSpec, opts ...Option) *Scheme {
	s, err := Define(id, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the scheme identifier.
func (s *Scheme) ID() string { return s.id }

// Family returns the scheme family.
func (s *Scheme) Family() Family { return s.family }

// Label returns the human readable description.
func (s *Scheme) Label() string {
	if s.label != "" {
		return s.label
	}
	parts := make([]string, len(s.fields))
	for i, fs := range s.fields {
		parts[i] = fs.String()
	}
	return strings.Join(parts, " + ")
}

// Column returns the observed table column holding this scheme's digests.
func (s *Scheme) Column() string { return s.column }

// Aliases returns the alternative column names.
func (s *Scheme) Aliases() []string { return append([]string(nil), s.aliases...) }

// ResolveColumn returns the first of Column and Aliases for which has
// reports true, or Column when none does.
func (s *Scheme) ResolveColumn(has func(string) bool) string {
	if has(s.column) {
		return s.column
	}
	for _, a := range s.aliases {
		if has(a) {
			return a
		}
	}
	return s.column
}

// Len returns the number of fields.
func (s *Scheme) Len() int { return len(s.fields) }

// Fields returns a copy of the field specs.
func (s *Scheme) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// FieldAt returns the i-th field spec.
func (s *Scheme) FieldAt(i int) FieldSpec { return s.fields[i] }

// BaseFields returns the distinct field types the scheme reads, in order.
func (s *Scheme) BaseFields() []Field {
	seen := make(map[Field]bool, len(s.fields))
	out := make([]Field, 0, len(s.fields))
	for _, fs := range s.fields {
		if !seen[fs.Field] {
			seen[fs.Field] = true
			out = append(out, fs.Field)
		}
	}
	return out
}

// Token returns the match-key token of the i-th field for a raw value.
// Forward hashing and guess enumeration both go through Token.
func (s *Scheme) Token(i int, value string) string {
	fs := s.fields[i]
	return fs.Transform.Apply(fs.Field.Canonical(value))
}

// Tokens returns the tokens of a row and whether every field produced a
// non-empty token.
func (s *Scheme) Tokens(row Row) ([]string, bool) {
	tokens := make([]string, len(s.fields))
	complete := true
	for i, fs := range s.fields {
		tokens[i] = s.Token(i, row[fs.Field])
		if tokens[i] == "" {
			complete = false
		}
	}
	return tokens, complete
}

// Hash returns the digest of a row (the forward path).
func (s *Scheme) Hash(row Row) string {
	tokens, _ := s.Tokens(row)
	return Digest(tokens...)
}

// String returns the scheme id.
func (s *Scheme) String() string { return s.id }

// Digest normalizes each value, drops empty tokens, concatenates the rest
// without separator and returns the lowercase hex SHA-256 of the result.
func Digest(values ...string) string {
	h := sha256.New()
	for _, v := range values {
		if token := normalize.Normalize(v); token != "" {
			h.Write([]byte(token))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// IsDigest reports whether s looks like a match-key digest.
func IsDigest(s string) bool {
	if len(s) != DigestLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
