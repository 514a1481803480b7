// Package pipeline runs the stages of an assessment in sequence.
//
// A run passes through attack, correlation, consolidation and persistence
// steps. Each step receives the run and fills in its part. The attack step
// fans out over schemes with a BatchProcessor bounded by errgroup.SetLimit.
//
// Design decision: stages are steps rather than direct calls so each
// command assembles only the stages it needs, while logging, cancellation
// and error recording stay in one place.
package pipeline
