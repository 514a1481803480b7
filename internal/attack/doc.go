// Package attack reverses observed match-key digests with a dictionary
// built from a bounded guess space.
//
// Engine.Run builds a digest to tuple index and looks every observed digest
// up in it. Engine.RunSharded enumerates shards of the guess space in
// parallel against an immutable set of observed digests and reduces the
// shard results in shard order, so its output equals Run's. Engine.Exists
// stops at the first match.
//
// A digest that is not recovered is reported as not covered by the guess
// space. It is never reported as safe.
package attack
