// Package guess enumerates the bounded guess space of a match-key scheme.
//
// For every field of a scheme the generator takes the top-K values of the
// reference snapshot, applies the field's transform, drops empty tokens and
// de-duplicates in rank order. The guess space is the cartesian product of
// these candidate lists, enumerated lazily with the first field outermost.
package guess
