// Package normalize turns raw quasi-identifier values into the canonical
// tokens that match-keys are built from.
//
// Every function is pure and deterministic. The same functions run on the
// forward path (hashing a population) and on the guess path (enumerating
// candidates), so a token produced here is the only thing two digests are
// ever compared on.
package normalize
