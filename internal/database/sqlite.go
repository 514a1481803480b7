package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/mkattack/internal/model"
)

// FileName is the SQLite database file inside the database directory.
const FileName = "mkattack.db"

// ResultsDB is the SQLite Store.
type ResultsDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultsDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the results database in dbDir.
func OpenSQLite(dbDir string, opts Options) (*ResultsDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultsDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the database file path.
func (r *ResultsDB) Path() string { return r.dbPath }

// Close closes the database connection.
func (r *ResultsDB) Close() error {
	return r.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (r *ResultsDB) createTables() error {
	schema := `
	-- One row per assessment; run_json holds everything except hits
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		reference TEXT,
		observed TEXT,
		top_k INTEGER,
		stages TEXT,
		schemes INTEGER,
		hits INTEGER,
		highest TEXT,
		run_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scheme_results (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		scheme_id TEXT NOT NULL,
		column_name TEXT,
		observed INTEGER,
		hit_count INTEGER,
		recovery_rate REAL,
		risk TEXT,
		skipped INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_scheme_results_run ON scheme_results(run_id);

	-- Recovered digests as typed rows: scheme id plus JSON field list
	CREATE TABLE IF NOT EXISTS hits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		scheme_id TEXT NOT NULL,
		digest TEXT NOT NULL,
		fields_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_hits_run ON hits(run_id);
	CREATE INDEX IF NOT EXISTS idx_hits_digest ON hits(digest);

	CREATE TABLE IF NOT EXISTS correlation_scores (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		column_name TEXT NOT NULL,
		scheme_id TEXT NOT NULL,
		metric TEXT NOT NULL,
		value REAL,
		overlap INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_scores_run ON correlation_scores(run_id);
	`
	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores run in one transaction and sets run.ID.
func (r *ResultsDB) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	runJSON, err := encodeRun(run)
	if err != nil {
		return 0, err
	}
	stages, schemes, hits, highest := runSummary(run)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, insertRunSQL,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Reference, run.Observed, run.TopK,
		stages, schemes, hits, highest, runJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, sr := range run.Attack {
		if _, err := tx.ExecContext(ctx, insertSchemeResultSQL,
			id, sr.SchemeID, sr.Column, sr.Observed, sr.HitCount, sr.RecoveryRate, sr.RiskText, sr.Skipped,
		); err != nil {
			return 0, fmt.Errorf("failed to save result of %s: %w", sr.SchemeID, err)
		}
		for _, h := range sr.Hits {
			fields, err := encodeFields(h.Values)
			if err != nil {
				return 0, err
			}
			if _, err := tx.ExecContext(ctx, insertHitSQL, id, h.SchemeID, h.Digest, fields); err != nil {
				return 0, fmt.Errorf("failed to save hit: %w", err)
			}
		}
	}

	if run.Correlation != nil {
		for _, col := range run.Correlation.Columns {
			for _, s := range col.Scores {
				if _, err := tx.ExecContext(ctx, insertScoreSQL,
					id, s.Column, s.SchemeID, string(s.Metric), s.Value, s.Overlap,
				); err != nil {
					return 0, fmt.Errorf("failed to save correlation score: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	run.ID = id
	return id, nil
}

// GetRun returns a stored run with its hits reattached.
func (r *ResultsDB) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	var runJSON string
	err := r.db.QueryRowContext(ctx, selectRunSQL, id).Scan(&id, &runJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run, err := decodeRun(id, runJSON)
	if err != nil {
		return nil, err
	}
	hits, err := r.Hits(ctx, id)
	if err != nil {
		return nil, err
	}
	attachHits(run, hits)
	return run, nil
}

// Hits returns the hits of a run in insertion order.
func (r *ResultsDB) Hits(ctx context.Context, runID int64) ([]model.Hit, error) {
	rows, err := r.db.QueryContext(ctx, selectHitsSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	var hits []model.Hit
	for rows.Next() {
		var schemeID, digest, fields string
		if err := rows.Scan(&schemeID, &digest, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		h, err := decodeHit(schemeID, digest, fields)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ListRuns returns the newest runs first.
func (r *ResultsDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := listRunsSQL
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedAt string
		var reference, observed, stages, highest sql.NullString
		var topK, schemes, hits sql.NullInt64
		if err := rows.Scan(&rec.ID, &startedAt, &reference, &observed, &topK, &stages, &schemes, &hits, &highest); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartedAt = parseTimestamp(startedAt)
		rec.Reference = reference.String
		rec.Observed = observed.String
		rec.TopK = int(topK.Int64)
		rec.Stages = stages.String
		rec.Schemes = int(schemes.Int64)
		rec.Hits = int(hits.Int64)
		rec.Highest = highest.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
