package scheme

import "errors"

// Scheme declaration errors.
// These are returned by Define, ParseTransform, NewRegistry and
// Definition.Scheme, and are checked by callers with errors.Is.
var (
	// ErrEmptySchemeID is returned when a scheme has no identifier.
	ErrEmptySchemeID = errors.New("scheme id must not be empty")

	// ErrNoFields is returned when a scheme declares no fields.
	ErrNoFields = errors.New("scheme must declare at least one field")

	// ErrUnknownField is returned for a field name outside the attribute model.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownTransform is returned for a transform that cannot be parsed.
	ErrUnknownTransform = errors.New("unknown transform")

	// ErrInvalidPrefix is returned when prefix(n) has n < 1.
	ErrInvalidPrefix = errors.New("invalid prefix length: must be positive")

	// ErrDuplicateScheme is returned when two schemes share an identifier.
	ErrDuplicateScheme = errors.New("duplicate scheme id")

	// ErrUnknownScheme is returned when a selection names a scheme that is
	// not registered.
	ErrUnknownScheme = errors.New("unknown scheme")
)
