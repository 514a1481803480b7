// Package profile consolidates dictionary attack hits from many schemes into
// deduplicated identity profiles.
//
// Each hit is mapped through its scheme's declared fields. Only fields that
// carry a plaintext value (identity transform, or a date prefix long enough
// to give the year) become attributes; initials, Soundex codes and name
// prefixes do not. A hit that yields a first name, a last name and a year of
// birth is folded into the profile of that person: empty attributes are
// filled, and a differing value keeps the existing one and is logged as a
// conflict.
package profile
