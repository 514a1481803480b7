package model

// Metric names a histogram similarity measure.
type Metric string

// Correlation metrics.
const (
	MetricSpearman      Metric = "spearman"
	MetricJensenShannon Metric = "jensen_shannon"
	MetricCosine        Metric = "cosine"
)

// Metrics lists all metrics in report order.
var Metrics = []Metric{MetricSpearman, MetricJensenShannon, MetricCosine}

// CorrelationScore is the similarity between an unlabeled digest column
// and the reference histogram of one candidate scheme.
type CorrelationScore struct {
	Column   string  `json:"column"`
	SchemeID string  `json:"scheme_id"`
	Metric   Metric  `json:"metric"`
	Value    float64 `json:"value"`
	// Overlap is the number of aligned keys the score was computed on.
	Overlap int `json:"overlap"`
}

// ColumnCorrelation holds the scores of one unlabeled column.
type ColumnCorrelation struct {
	Column string `json:"column"`

	// Distinct is the number of distinct digests kept after filtering.
	Distinct int `json:"distinct"`

	// Best holds the best positive score per metric, in Metrics order.
	// A metric without any positive score is absent.
	Best []CorrelationScore `json:"best,omitempty"`

	// Scores holds every defined score.
	Scores []CorrelationScore `json:"scores,omitempty"`
}

// BestFor returns the best score of metric m.
func (c ColumnCorrelation) BestFor(m Metric) (CorrelationScore, bool) {
	for _, s := range c.Best {
		if s.Metric == m {
			return s, true
		}
	}
	return CorrelationScore{}, false
}

// CorrelationReport is the outcome of a frequency correlation stage.
type CorrelationReport struct {
	// Mode is the alignment mode (strict or permissive).
	Mode string `json:"mode"`

	// MinOverlap is the minimum number of shared keys required.
	MinOverlap int `json:"min_overlap"`

	Columns []ColumnCorrelation `json:"columns"`

	// SkippedSchemes lists candidate schemes without a reference histogram.
	SkippedSchemes []string `json:"skipped_schemes,omitempty"`
}
