package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/mkattack/internal/model"
)

var (
	// ErrRunNotFound is returned when no run has the requested id.
	ErrRunNotFound = errors.New("run not found")

	// ErrDatabaseNotFound is returned when opening a database that must
	// already exist.
	ErrDatabaseNotFound = errors.New("database not found")
)

// Store persists runs and reads them back.
type Store interface {
	// SaveRun stores run with all its results and sets run.ID.
	SaveRun(ctx context.Context, run *model.Run) (int64, error)

	// GetRun returns a stored run with its hits reattached.
	GetRun(ctx context.Context, id int64) (*model.Run, error)

	// ListRuns returns the newest runs first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)

	// Hits returns the hits of a run in scheme then insertion order.
	Hits(ctx context.Context, runID int64) ([]model.Hit, error)

	// Close releases the connection.
	Close() error
}

// RunRecord is the summary row of a stored run, used to list history
// without loading every hit.
type RunRecord struct {
	ID        int64
	StartedAt time.Time
	Reference string
	Observed  string
	TopK      int
	Stages    string
	Schemes   int
	Hits      int
	Highest   string
}

// Open returns the PostgreSQL store when dbURL is set and the SQLite
// store in dbDir otherwise.
func Open(ctx context.Context, dbDir, dbURL string) (Store, error) {
	if dbURL != "" {
		return OpenPostgres(ctx, dbURL)
	}
	return OpenSQLite(dbDir, DefaultOptions())
}

// === Shared SQL ===

// The statements below use ? placeholders. PostgresStore rebinds them.
const (
	insertRunSQL = `
	INSERT INTO runs (started_at, finished_at, reference, observed, top_k, stages, schemes, hits, highest, run_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertSchemeResultSQL = `
	INSERT INTO scheme_results (run_id, scheme_id, column_name, observed, hit_count, recovery_rate, risk, skipped)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertHitSQL = `
	INSERT INTO hits (run_id, scheme_id, digest, fields_json)
	VALUES (?, ?, ?, ?)`

	insertScoreSQL = `
	INSERT INTO correlation_scores (run_id, column_name, scheme_id, metric, value, overlap)
	VALUES (?, ?, ?, ?, ?, ?)`

	selectRunSQL = `SELECT id, run_json FROM runs WHERE id = ?`

	selectHitsSQL = `
	SELECT scheme_id, digest, fields_json FROM hits
	WHERE run_id = ?
	ORDER BY id`

	listRunsSQL = `
	SELECT id, started_at, reference, observed, top_k, stages, schemes, hits, highest
	FROM runs
	ORDER BY id DESC`
)

// encodeRun serializes the document kept per run. Hits live in their own
// table and are left out of the document.
func encodeRun(run *model.Run) (string, error) {
	doc := *run
	doc.Attack = make([]model.SchemeResult, len(run.Attack))
	for i, res := range run.Attack {
		res.Hits = nil
		doc.Attack[i] = res
	}
	if run.Error != nil && doc.ErrorMessage == "" {
		doc.ErrorMessage = run.Error.Error()
	}
	data, err := json.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize run: %w", err)
	}
	return string(data), nil
}

func decodeRun(id int64, runJSON string) (*model.Run, error) {
	var run model.Run
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run %d: %w", id, err)
	}
	run.ID = id
	return &run, nil
}

func encodeFields(values []model.FieldValue) (string, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to serialize hit fields: %w", err)
	}
	return string(data), nil
}

func decodeHit(schemeID, digest, fieldsJSON string) (model.Hit, error) {
	h := model.Hit{SchemeID: schemeID, Digest: digest}
	if err := json.Unmarshal([]byte(fieldsJSON), &h.Values); err != nil {
		return model.Hit{}, fmt.Errorf("failed to parse hit %s: %w", digest, err)
	}
	return h, nil
}

// attachHits puts hits back into the scheme results they came from.
func attachHits(run *model.Run, hits []model.Hit) {
	index := make(map[string]int, len(run.Attack))
	for i, res := range run.Attack {
		index[res.SchemeID] = i
	}
	for _, h := range hits {
		if i, ok := index[h.SchemeID]; ok {
			run.Attack[i].Hits = append(run.Attack[i].Hits, h)
		}
	}
}

// runSummary returns the denormalized columns of the runs table.
func runSummary(run *model.Run) (stages string, schemes, hits int, highest string) {
	s := run.Summarize()
	stagesJSON, _ := json.Marshal(run.PerformedStages) //nolint:errchkjson // []string always marshals
	return string(stagesJSON), s.Schemes, s.Hits, s.Highest.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats a store may return.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StageList decodes the stages column.
func (r RunRecord) StageList() []string {
	var stages []string
	_ = json.Unmarshal([]byte(r.Stages), &stages) //nolint:errcheck // malformed column lists no stages
	return stages
}
