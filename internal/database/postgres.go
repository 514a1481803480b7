package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/mkattack/internal/model"
)

// connectTimeout bounds the initial ping and schema creation.
const connectTimeout = 10 * time.Second

// PostgresStore is the PostgreSQL Store, for teams that share results.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the tables if needed.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(initCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(initCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id BIGSERIAL PRIMARY KEY,
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
	run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	scheme_id TEXT NOT NULL,
	column_name TEXT,
	observed INTEGER,
	hit_count INTEGER,
	recovery_rate DOUBLE PRECISION,
	risk TEXT,
	skipped BOOLEAN
);

CREATE INDEX IF NOT EXISTS idx_scheme_results_run ON scheme_results(run_id);

CREATE TABLE IF NOT EXISTS hits (
	id BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	scheme_id TEXT NOT NULL,
	digest TEXT NOT NULL,
	fields_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hits_run ON hits(run_id);
CREATE INDEX IF NOT EXISTS idx_hits_digest ON hits(digest);

CREATE TABLE IF NOT EXISTS correlation_scores (
	run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	column_name TEXT NOT NULL,
	scheme_id TEXT NOT NULL,
	metric TEXT NOT NULL,
	value DOUBLE PRECISION,
	overlap INTEGER
);

CREATE INDEX IF NOT EXISTS idx_scores_run ON correlation_scores(run_id);
`

// rebind rewrites ? placeholders as $1, $2, ... It does not look inside
// string literals; the shared statements have none.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveRun stores run in one transaction and sets run.ID. Child rows are
// sent as one batch.
func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) (int64, error) {
	runJSON, err := encodeRun(run)
	if err != nil {
		return 0, err
	}
	stages, schemes, hits, highest := runSummary(run)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // no-op after commit

	var id int64
	if err := tx.QueryRow(ctx, rebind(insertRunSQL)+" RETURNING id",
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Reference, run.Observed, run.TopK,
		stages, schemes, hits, highest, runJSON,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, sr := range run.Attack {
		batch.Queue(rebind(insertSchemeResultSQL),
			id, sr.SchemeID, sr.Column, sr.Observed, sr.HitCount, sr.RecoveryRate, sr.RiskText, sr.Skipped)
		for _, h := range sr.Hits {
			fields, err := encodeFields(h.Values)
			if err != nil {
				return 0, err
			}
			batch.Queue(rebind(insertHitSQL), id, h.SchemeID, h.Digest, fields)
		}
	}
	if run.Correlation != nil {
		for _, col := range run.Correlation.Columns {
			for _, sc := range col.Scores {
				batch.Queue(rebind(insertScoreSQL), id, sc.Column, sc.SchemeID, string(sc.Metric), sc.Value, sc.Overlap)
			}
		}
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return 0, fmt.Errorf("failed to save run results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	run.ID = id
	return id, nil
}

// GetRun returns a stored run with its hits reattached.
func (s *PostgresStore) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	var runJSON string
	err := s.pool.QueryRow(ctx, rebind(selectRunSQL), id).Scan(&id, &runJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run, err := decodeRun(id, runJSON)
	if err != nil {
		return nil, err
	}
	hits, err := s.Hits(ctx, id)
	if err != nil {
		return nil, err
	}
	attachHits(run, hits)
	return run, nil
}

// Hits returns the hits of a run in insertion order.
func (s *PostgresStore) Hits(ctx context.Context, runID int64) ([]model.Hit, error) {
	rows, err := s.pool.Query(ctx, rebind(selectHitsSQL), runID)
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
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := listRunsSQL
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var startedAt string
		var reference, observed, stages, highest *string
		var topK, schemes, hits *int32
		if err := rows.Scan(&rec.ID, &startedAt, &reference, &observed, &topK, &stages, &schemes, &hits, &highest); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartedAt = parseTimestamp(startedAt)
		rec.Reference = deref(reference)
		rec.Observed = deref(observed)
		rec.Stages = deref(stages)
		rec.Highest = deref(highest)
		rec.TopK = int(derefInt(topK))
		rec.Schemes = int(derefInt(schemes))
		rec.Hits = int(derefInt(hits))
		records = append(records, rec)
	}
	return records, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int32) int32 {
	if n == nil {
		return 0
	}
	return *n
}

// Compile-time interface checks.
var (
	_ Store = (*ResultsDB)(nil)
	_ Store = (*PostgresStore)(nil)
)
