package model

import "fmt"

// Severity represents the re-identification risk of a match-key scheme.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo means no observed digest was recovered. The scheme is not
	// shown to be safe: the guess space may simply not cover the population.
	SeverityInfo Severity = iota

	// SeverityLow means a handful of records were recovered.
	SeverityLow

	// SeverityMedium means at least 5% of the observed records were recovered.
	SeverityMedium

	// SeverityHigh means at least 20% of the observed records were recovered.
	SeverityHigh

	// SeverityCritical means at least half of the observed records were
	// recovered with a top-K dictionary alone.
	SeverityCritical
)

// Recovery rate thresholds for each grade.
const (
	criticalRate = 0.5
	highRate     = 0.2
	mediumRate   = 0.05
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Grade maps a recovery rate (recovered records / observed records) to a
// severity.
func Grade(rate float64) Severity {
	switch {
	case rate >= criticalRate:
		return SeverityCritical
	case rate >= highRate:
		return SeverityHigh
	case rate >= mediumRate:
		return SeverityMedium
	case rate > 0:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Advice describes what a severity means and what to do about it.
type Advice struct {
	Severity       Severity `json:"severity"`
	Impact         string   `json:"impact"`
	Recommendation string   `json:"recommendation"`
}

// adviceMapping holds one Advice per severity. Keeping the wording in one
// place keeps the text, JSON and Markdown reports consistent.
var adviceMapping = map[Severity]Advice{
	SeverityCritical: {
		Severity:       SeverityCritical,
		Impact:         "Most records can be re-identified by hashing the most common attribute values of a public population.",
		Recommendation: "Do not release this match-key unsalted. Switch to a keyed hash (HMAC) held by a trusted third party.",
	},
	SeverityHigh: {
		Severity:       SeverityHigh,
		Impact:         "A large share of records can be re-identified with a bounded dictionary attack.",
		Recommendation: "Add a secret key or salt, or drop low-entropy fields from the scheme.",
	},
	SeverityMedium: {
		Severity:       SeverityMedium,
		Impact:         "A noticeable share of records with common attribute values can be re-identified.",
		Recommendation: "Review whether the scheme needs plain name and date fields; prefer keyed hashing.",
	},
	SeverityLow: {
		Severity:       SeverityLow,
		Impact:         "Few records were recovered, but every recovered digest exposes a real identity.",
		Recommendation: "Treat the digests as personal data and restrict their distribution.",
	},
	SeverityInfo: {
		Severity:       SeverityInfo,
		Impact:         "No digest was recovered within the guess space. Records outside the top-K values were not tested.",
		Recommendation: "Re-run with a larger top-K before concluding the scheme resists dictionary attacks.",
	},
}

// GetAdvice returns the advice for a severity.
func GetAdvice(s Severity) Advice {
	if a, ok := adviceMapping[s]; ok {
		return a
	}
	return Advice{Severity: s, Impact: fmt.Sprintf("unknown severity %d", int(s))}
}
