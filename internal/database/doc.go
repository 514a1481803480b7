// Package database persists assessment runs.
//
// Two Store implementations share one table layout:
//   - ResultsDB: SQLite (modernc.org/sqlite) in the XDG data directory
//   - PostgresStore: PostgreSQL through a pgx connection pool
//
// A run is kept as its JSON document plus typed rows per scheme result,
// hit and correlation score. Hits are rows of scheme id and field list,
// so later stages read them back as model.Hit values without parsing
// report text.
//
// Design decision: SQLite is the default because it is a single CGO-free
// file that needs no server, and WAL mode gives concurrent readers.
package database
