package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Config.ValidateInputs.
//
// Design decision: package-level sentinels so callers can use errors.Is
// while still printing a message that names the offending flag.
var (
	// ErrNoReference is returned when a stage needs the reference table and
	// --reference is not set.
	ErrNoReference = errors.New("no reference table: use --reference")

	// ErrNoObserved is returned when a stage needs the observed table and
	// --observed is not set.
	ErrNoObserved = errors.New("no observed table: use --observed")

	// ErrInvalidTopK is returned when the top-k is not positive.
	ErrInvalidTopK = errors.New("invalid top-k: must be positive")

	// ErrInvalidMaxGuessSpace is returned when the guess space limit is not
	// positive.
	ErrInvalidMaxGuessSpace = errors.New("invalid max guess space: must be positive")

	// ErrInvalidMinOverlap is returned when the minimum overlap is not positive.
	ErrInvalidMinOverlap = errors.New("invalid min overlap: must be positive")

	// ErrInvalidMinCount is returned when the minimum count is negative.
	ErrInvalidMinCount = errors.New("invalid min count: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMode is returned for an alignment mode other than strict
	// or permissive.
	ErrInvalidMode = errors.New("invalid mode: must be strict or permissive")

	// ErrInvalidMetric is returned for an unknown correlation metric.
	ErrInvalidMetric = errors.New("invalid metric: must be spearman, jensen_shannon or cosine")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoSchemes is returned when the scheme selection leaves nothing to run.
	ErrNoSchemes = errors.New("no schemes selected")
)
