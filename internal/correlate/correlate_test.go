package correlate

import (
	"math"
	"strings"
	"testing"

	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/scheme"
)

const tolerance = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < tolerance }

func TestSpearman(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		x, y   []float64
		want   float64
		wantOK bool
	}{
		{name: "identical", x: []float64{1, 2, 3, 4}, y: []float64{1, 2, 3, 4}, want: 1, wantOK: true},
		{name: "monotone", x: []float64{1, 2, 3, 4}, y: []float64{10, 20, 30, 400}, want: 1, wantOK: true},
		{name: "reversed", x: []float64{1, 2, 3}, y: []float64{3, 2, 1}, want: -1, wantOK: true},
		{name: "zero variance", x: []float64{2, 2, 2}, y: []float64{1, 2, 3}, wantOK: false},
		{name: "single point", x: []float64{1}, y: []float64{1}, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Spearman(tt.x, tt.y)
			if ok != tt.wantOK {
				t.Fatalf("Spearman ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !near(got, tt.want) {
				t.Errorf("Spearman = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRanks_Ties(t *testing.T) {
	t.Parallel()

	got := ranks([]float64{10, 20, 20, 5})
	want := []float64{2, 3.5, 3.5, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ranks = %v, want %v", got, want)
		}
	}
}

func TestSimilarities_Identical(t *testing.T) {
	t.Parallel()

	x := []float64{5, 1, 3, 3, 9}
	if v, ok := JensenShannon(x, x); !ok || !near(v, 1) {
		t.Errorf("JensenShannon(x, x) = %v, %v", v, ok)
	}
	if v, ok := Cosine(x, x); !ok || !near(v, 1) {
		t.Errorf("Cosine(x, x) = %v, %v", v, ok)
	}
	if _, ok := Cosine([]float64{0, 0}, []float64{1, 2}); ok {
		t.Error("zero vector must be undefined")
	}
}

func TestJensenShannon_Range(t *testing.T) {
	t.Parallel()

	v, ok := JensenShannon([]float64{100, 0, 0}, []float64{0, 0, 100})
	if !ok {
		t.Fatal("expected a score")
	}
	if v < 0 || v > 1 || v > 0.01 {
		t.Errorf("disjoint distributions similarity = %v, want near 0", v)
	}
}

func TestAlign(t *testing.T) {
	t.Parallel()

	a := Histogram{"a": 1, "b": 2, "c": 3}
	b := Histogram{"b": 5, "c": 6, "d": 7}

	x, y, shared := Align(a, b, Strict)
	if shared != 2 || len(x) != 2 || x[0] != 2 || y[1] != 6 {
		t.Errorf("strict Align = %v %v %d", x, y, shared)
	}

	x, y, shared = Align(a, b, Permissive)
	if shared != 2 || len(x) != 4 {
		t.Fatalf("permissive Align = %v %v %d", x, y, shared)
	}
	if x[3] != 0 || y[0] != 0 {
		t.Errorf("permissive alignment must zero fill: %v %v", x, y)
	}
}

func TestEngine_Score(t *testing.T) {
	t.Parallel()

	h := Histogram{"a": 1, "b": 2, "c": 4, "d": 8}

	t.Run("identical histograms score 1 on every metric", func(t *testing.T) {
		t.Parallel()

		scores := New().Score("col", h, Candidate{SchemeID: "mk1", Histogram: h})
		if len(scores) != 3 {
			t.Fatalf("Score() = %+v, want 3 metrics", scores)
		}
		for _, s := range scores {
			if !near(s.Value, 1) || s.Overlap != 4 {
				t.Errorf("%s = %v (overlap %d), want 1", s.Metric, s.Value, s.Overlap)
			}
		}
	})

	t.Run("insufficient overlap yields no score", func(t *testing.T) {
		t.Parallel()

		other := Histogram{"a": 1, "b": 2, "z": 3}
		if scores := New().Score("col", h, Candidate{SchemeID: "mk1", Histogram: other}); scores != nil {
			t.Errorf("Score() = %+v, want none", scores)
		}
	})

	t.Run("metric selection", func(t *testing.T) {
		t.Parallel()

		scores := New(WithMetrics()).Score("col", h, Candidate{SchemeID: "mk1", Histogram: h})
		if len(scores) != 1 || scores[0].Metric != model.MetricSpearman {
			t.Errorf("Score() = %+v, want spearman only", scores)
		}
	})
}

func TestEngine_Analyze(t *testing.T) {
	t.Parallel()

	target := Histogram{"a": 1, "b": 2, "c": 4, "d": 8, "e": 16}
	inverse := Histogram{"a": 16, "b": 8, "c": 4, "d": 2, "e": 1}
	var digests []string
	for k, n := range target {
		for range n {
			digests = append(digests, k)
		}
	}
	digests = append(digests, "", "  ")

	candidates := []Candidate{
		{SchemeID: "mk_inverse", Histogram: inverse},
		{SchemeID: "mk_target", Histogram: target},
		{SchemeID: "mk_disjoint", Histogram: Histogram{"x": 1, "y": 2, "z": 3}},
	}
	report, err := New(WithMetrics()).Analyze(t.Context(), []Column{{Name: "unknown", Digests: digests}}, candidates)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	col := report.Columns[0]
	if col.Distinct != 5 {
		t.Errorf("Distinct = %d, want 5", col.Distinct)
	}
	best, ok := col.BestFor(model.MetricSpearman)
	if !ok || best.SchemeID != "mk_target" {
		t.Errorf("best spearman = %+v, want mk_target", best)
	}
	if len(col.Scores) != 2 {
		t.Errorf("Scores = %+v, want inverse and target only", col.Scores)
	}
}

func TestEngine_Analyze_NoPositiveScore(t *testing.T) {
	t.Parallel()

	inverse := Histogram{"a": 3, "b": 2, "c": 1}
	digests := []string{"a", "b", "b", "c", "c", "c"}

	report, err := New().Analyze(t.Context(), []Column{{Name: "col", Digests: digests}},
		[]Candidate{{SchemeID: "mk1", Histogram: inverse}})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := report.Columns[0].BestFor(model.MetricSpearman); ok {
		t.Error("negative correlation must not be reported as best")
	}
}

func TestHistogram_Filter(t *testing.T) {
	t.Parallel()

	h := FromColumn([]string{"A", "a", "b", "c", "c", "c"})
	if h["a"] != 2 {
		t.Errorf("FromColumn must lowercase digests: %v", h)
	}
	f := h.Filter(2)
	if len(f) != 2 || f["b"] != 0 {
		t.Errorf("Filter(2) = %v", f)
	}
	if len(h.Filter(1)) != 3 {
		t.Error("Filter(1) must keep everything")
	}
}

const referenceCSV = `first_name,last_name,dob
Anna,Schmidt,1985-06-23
Anna,Schmidt,1985-06-23
Anna,Meyer,1985-06-23
Ben,Schmidt,
Ben,Schmitt,1990-01-02
`

func TestReference(t *testing.T) {
	t.Parallel()

	tbl, err := population.ReadCSV(strings.NewReader(referenceCSV))
	if err != nil {
		t.Fatal(err)
	}
	reg := scheme.Builtin()

	mk1, _ := reg.Get("mk1")
	h, err := Reference(mk1, tbl)
	if err != nil {
		t.Fatalf("Reference() error = %v", err)
	}
	if len(h) != 3 {
		t.Errorf("mk1 histogram = %v, want 3 digests (duplicate row and empty dob dropped)", h)
	}

	mk4, _ := reg.Get("mk4")
	h4, err := Reference(mk4, tbl)
	if err != nil {
		t.Fatal(err)
	}
	d := mk4.Hash(scheme.Row{scheme.LastName: "Schmidt", scheme.DOB: "1985-06-23"})
	if h4[d] != 1 {
		t.Errorf("mk4 count for soundex(Schmidt)+dob = %d, want 1", h4[d])
	}

	candidates, skipped := References(reg.Family(scheme.FamilyRandall), tbl, nil)
	if len(candidates) != 2 {
		t.Errorf("candidates = %d, want mk_randall_1 and mk_randall_7", len(candidates))
	}
	if len(skipped) != 8 {
		t.Errorf("skipped = %v, want 8 schemes lacking columns", skipped)
	}
}
