package scheme

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nao1215/mkattack/internal/normalize"
)

// Field is the type of a quasi-identifier column.
type Field string

// Field types of the attribute model.
const (
	FirstName    Field = "first_name"
	LastName     Field = "last_name"
	FirstInitial Field = "first_initial"
	DOB          Field = "dob"
	YearOfBirth  Field = "year_of_birth"
	Zip          Field = "zip"
	Gender       Field = "gender"
	Email        Field = "email"
	Address      Field = "address"
)

// Fields lists every field type in a stable order.
var Fields = []Field{FirstName, LastName, FirstInitial, DOB, YearOfBirth, Zip, Gender, Email, Address}

// Valid reports whether f is a field of the attribute model.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Canonical returns the canonical token of a raw value of this field:
// dob becomes YYYYMMDD (or "" when it is not a date), zip keeps its digits
// and every other field is normalized.
func (f Field) Canonical(value string) string {
	switch f {
	case DOB:
		return normalize.Date(value)
	case Zip:
		return normalize.Zip(value)
	default:
		return normalize.Normalize(value)
	}
}

// TransformKind names what a Transform does to a canonical token.
type TransformKind string

// Transform kinds.
const (
	KindIdentity TransformKind = "identity"
	KindPrefix   TransformKind = "prefix"
	KindSoundex  TransformKind = "soundex"
	KindFirst    TransformKind = "first"
)

// Transform derives a match-key token from a canonical field token.
// The zero value is the identity transform.
type Transform struct {
	Kind TransformKind
	// N is the prefix length for KindPrefix.
	N int
}

// Identity returns the identity transform.
func Identity() Transform { return Transform{Kind: KindIdentity} }

// Prefix returns the transform keeping the first n runes.
func Prefix(n int) Transform { return Transform{Kind: KindPrefix, N: n} }

// SoundexCode returns the Soundex transform.
func SoundexCode() Transform { return Transform{Kind: KindSoundex} }

// First returns the first-character transform.
func First() Transform { return Transform{Kind: KindFirst} }

// IsIdentity reports whether t leaves the canonical token unchanged.
func (t Transform) IsIdentity() bool {
	return t.Kind == "" || t.Kind == KindIdentity
}

// Apply transforms a canonical token.
func (t Transform) Apply(token string) string {
	switch t.Kind {
	case KindPrefix:
		return prefixRunes(token, t.N)
	case KindSoundex:
		return normalize.Soundex(token)
	case KindFirst:
		return prefixRunes(token, 1)
	default:
		return token
	}
}

// String returns the textual form accepted by ParseTransform.
func (t Transform) String() string {
	switch t.Kind {
	case KindPrefix:
		return fmt.Sprintf("prefix(%d)", t.N)
	case "":
		return string(KindIdentity)
	default:
		return string(t.Kind)
	}
}

// ParseTransform parses "identity", "soundex", "first" or "prefix(n)".
// An empty string is the identity transform.
func ParseTransform(s string) (Transform, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", string(KindIdentity):
		return Identity(), nil
	case string(KindSoundex):
		return SoundexCode(), nil
	case string(KindFirst):
		return First(), nil
	}

	inner, ok := strings.CutPrefix(s, "prefix(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return Transform{}, fmt.Errorf("%w: %q", ErrUnknownTransform, s)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(inner, ")"))
	if err != nil {
		return Transform{}, fmt.Errorf("%w: %q", ErrUnknownTransform, s)
	}
	if n < 1 {
		return Transform{}, fmt.Errorf("%w: %q", ErrInvalidPrefix, s)
	}
	return Prefix(n), nil
}

func prefixRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
