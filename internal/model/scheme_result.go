package model

import "time"

// SchemeResult is the outcome of attacking one scheme's digest column.
type SchemeResult struct {
	// === Scheme ===

	SchemeID string `json:"scheme_id"`
	Family   string `json:"family"`
	Label    string `json:"label"`
	Column   string `json:"column"`

	// === Counts ===

	// Observed is the number of non-empty digests in the column.
	Observed int `json:"observed"`

	// DistinctObserved is the number of distinct digests in the column.
	DistinctObserved int `json:"distinct_observed"`

	// GuessSpace is the number of guesses enumerated.
	GuessSpace int `json:"guess_space"`

	// HitCount counts recovered rows, duplicates included.
	HitCount int `json:"hit_count"`

	// DistinctRecovered is the number of distinct digests recovered.
	DistinctRecovered int `json:"distinct_recovered"`

	// Uncovered is the number of distinct digests the guess space did not
	// cover. These are unknown, not safe.
	Uncovered int `json:"uncovered"`

	// RecoveryRate is HitCount / Observed.
	RecoveryRate float64 `json:"recovery_rate"`

	// Risk grades RecoveryRate.
	Risk     Severity `json:"risk"`
	RiskText string   `json:"risk_text"`

	// Hits lists every recovered row.
	Hits []Hit `json:"hits,omitempty"`

	// === State ===

	// Skipped is true if the scheme could not be attacked.
	Skipped bool `json:"skipped,omitempty"`

	// SkipReason explains why the scheme was skipped.
	SkipReason string `json:"skip_reason,omitempty"`

	// Duration is how long the attack took.
	Duration time.Duration `json:"duration"`
}

// Grade fills RecoveryRate, Risk and RiskText from the counts.
func (r *SchemeResult) Grade() {
	if r.Observed > 0 {
		r.RecoveryRate = float64(r.HitCount) / float64(r.Observed)
	}
	r.Risk = Grade(r.RecoveryRate)
	r.RiskText = r.Risk.String()
}

// SkippedResult returns a result for a scheme that was not attacked.
func SkippedResult(schemeID, column, reason string) SchemeResult {
	return SchemeResult{
		SchemeID:   schemeID,
		Column:     column,
		Skipped:    true,
		SkipReason: reason,
		RiskText:   SeverityInfo.String(),
	}
}
