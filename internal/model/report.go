package model

import (
	"slices"
	"time"
)

// Run is the result structure of one assessment.
// It contains everything collected while attacking, correlating and
// consolidating one observed table against one reference population.
//
// Design decision: We use a single struct with optional sub-reports rather
// than one type per command so that the writers and the results store
// handle every command the same way. A stage that did not run leaves its
// sub-report nil.
type Run struct {
	// === Identification ===

	// ID is the results store identifier. Zero until the run is saved.
	ID int64 `json:"id,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last stage completed.
	FinishedAt time.Time `json:"finished_at"`

	// Reference is the path of the reference population table.
	Reference string `json:"reference,omitempty"`

	// Observed is the path of the observed digest table.
	Observed string `json:"observed,omitempty"`

	// TopK is the per-field bound of the guess space.
	TopK int `json:"top_k,omitempty"`

	// === Results ===

	// Attack holds one result per scheme, in registry order.
	Attack []SchemeResult `json:"attack,omitempty"`

	// Issues lists scheme/column mismatches found before attacking.
	Issues []string `json:"issues,omitempty"`

	// Correlation is set when the correlation stage ran.
	Correlation *CorrelationReport `json:"correlation,omitempty"`

	// Profiles is set when the consolidation stage ran.
	Profiles *ProfileReport `json:"profiles,omitempty"`

	// === Run State ===

	// PerformedStages lists the stages that were actually performed.
	PerformedStages []string `json:"performed_stages,omitempty"`

	// TimedOut is true if the run was interrupted.
	TimedOut bool `json:"timed_out"`

	// Error contains any error that occurred during the run.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewRun creates a run for the given inputs.
func NewRun(reference, observed string, topK int) *Run {
	return &Run{
		Reference: reference,
		Observed:  observed,
		TopK:      topK,
		StartedAt: time.Now(),
	}
}

// AddStage records a performed stage once.
func (r *Run) AddStage(name string) {
	if !slices.Contains(r.PerformedStages, name) {
		r.PerformedStages = append(r.PerformedStages, name)
	}
}

// Hits returns the hits of all schemes in registry order.
func (r *Run) Hits() []Hit {
	var hits []Hit
	for _, res := range r.Attack {
		hits = append(hits, res.Hits...)
	}
	return hits
}

// Summary aggregates the attack results.
type Summary struct {
	Schemes           int      `json:"schemes"`
	Attacked          int      `json:"attacked"`
	Skipped           int      `json:"skipped"`
	Observed          int      `json:"observed"`
	Hits              int      `json:"hits"`
	DistinctRecovered int      `json:"distinct_recovered"`
	Uncovered         int      `json:"uncovered"`
	Highest           Severity `json:"highest"`

	// Counts per severity, mirroring the scheme results.
	CriticalCount int `json:"critical_count"`
	HighCount     int `json:"high_count"`
	MediumCount   int `json:"medium_count"`
	LowCount      int `json:"low_count"`
	InfoCount     int `json:"info_count"`
}

// Summarize computes the attack summary.
func (r *Run) Summarize() Summary {
	s := Summary{Schemes: len(r.Attack)}
	for _, res := range r.Attack {
		if res.Skipped {
			s.Skipped++
			continue
		}
		s.Attacked++
		s.Observed += res.Observed
		s.Hits += res.HitCount
		s.DistinctRecovered += res.DistinctRecovered
		s.Uncovered += res.Uncovered
		if res.Risk > s.Highest {
			s.Highest = res.Risk
		}

		switch res.Risk {
		case SeverityCritical:
			s.CriticalCount++
		case SeverityHigh:
			s.HighCount++
		case SeverityMedium:
			s.MediumCount++
		case SeverityLow:
			s.LowCount++
		case SeverityInfo:
			s.InfoCount++
		}
	}
	return s
}
