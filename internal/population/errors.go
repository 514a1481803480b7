package population

import "errors"

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV nor Parquet.
	ErrUnsupportedFormat = errors.New("unsupported table format: use .csv or .parquet")

	// ErrNoHeader is returned when a CSV file has no header row.
	ErrNoHeader = errors.New("table has no header row")

	// ErrMissingColumn is returned when a requested column is absent.
	ErrMissingColumn = errors.New("column not found")

	// ErrInvalidK is returned when the top-K bound is not positive.
	ErrInvalidK = errors.New("invalid top-k: must be positive")
)
