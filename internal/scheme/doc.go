// Package scheme declares match-key schemes and computes their digests.
//
// A Scheme is immutable declarative data: an identifier plus an ordered list
// of (field, transform) pairs. The same Scheme value drives three consumers:
//   - the forward path (Scheme.Hash), which turns a population row into the
//     match-key a data holder would publish
//   - the guess path (internal/guess), which enumerates candidate tokens
//   - the profile path (internal/profile), which maps recovered tokens back
//     to plaintext attributes
//
// Because all three call Scheme.Token and Digest, a digest produced by the
// forward path is always reproducible from the same raw values on the guess
// path.
//
// # Built-in schemes
//
// Builtin returns the ONS family (mk1 to mk13) and the Randall family
// (mk_randall_1 to mk_randall_10). Custom schemes are declared as
// Definition values, typically loaded from the YAML config file.
package scheme
