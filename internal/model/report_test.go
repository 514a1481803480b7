package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleRun() *Run {
	r := NewRun("ref.csv", "obs.csv", 50)
	mk1 := SchemeResult{
		SchemeID: "mk1", Column: "mk1", Observed: 10, DistinctObserved: 8,
		HitCount: 6, DistinctRecovered: 4, Uncovered: 4,
		Hits: []Hit{{SchemeID: "mk1", Digest: "d1", Values: []FieldValue{
			{Field: "first_name", Transform: "identity", Raw: "Anna", Token: "anna"},
			{Field: "last_name", Transform: "soundex", Raw: "Schmidt", Token: "S253"},
		}}},
	}
	mk1.Grade()
	mk2 := SchemeResult{SchemeID: "mk2", Column: "mk2", Observed: 10, DistinctObserved: 10, Uncovered: 10}
	mk2.Grade()
	r.Attack = []SchemeResult{mk1, mk2, SkippedResult("mk3", "mk3", "column not found")}
	return r
}

func TestSchemeResult_Grade(t *testing.T) {
	t.Parallel()

	r := sampleRun()
	if got := r.Attack[0].RecoveryRate; got != 0.6 {
		t.Errorf("RecoveryRate = %v, want 0.6", got)
	}
	if r.Attack[0].Risk != SeverityCritical || r.Attack[0].RiskText != "CRITICAL" {
		t.Errorf("Risk = %v, want CRITICAL", r.Attack[0].Risk)
	}
	if r.Attack[1].Risk != SeverityInfo {
		t.Errorf("zero hits must grade INFO, got %v", r.Attack[1].Risk)
	}

	empty := SchemeResult{}
	empty.Grade()
	if empty.RecoveryRate != 0 {
		t.Error("empty column must not divide by zero")
	}
}

func TestRun_Summarize(t *testing.T) {
	t.Parallel()

	s := sampleRun().Summarize()
	if s.Schemes != 3 || s.Attacked != 2 || s.Skipped != 1 {
		t.Errorf("scheme counts = %+v", s)
	}
	if s.Hits != 6 || s.Observed != 20 || s.Uncovered != 14 {
		t.Errorf("hit counts = %+v", s)
	}
	if s.Highest != SeverityCritical || s.CriticalCount != 1 || s.InfoCount != 1 {
		t.Errorf("severity counts = %+v", s)
	}
}

func TestRun_AddStage(t *testing.T) {
	t.Parallel()

	r := NewRun("", "", 1)
	r.AddStage("attack")
	r.AddStage("attack")
	r.AddStage("profile")
	if len(r.PerformedStages) != 2 {
		t.Errorf("PerformedStages = %v, want 2 distinct stages", r.PerformedStages)
	}
}

func TestRun_Hits(t *testing.T) {
	t.Parallel()

	hits := sampleRun().Hits()
	if len(hits) != 1 || hits[0].SchemeID != "mk1" {
		t.Errorf("Hits() = %+v", hits)
	}
}

func TestHit_Text(t *testing.T) {
	t.Parallel()

	h := sampleRun().Hits()[0]
	if got := h.Plaintext(); got != "annaS253" {
		t.Errorf("Plaintext() = %q", got)
	}
	if got := h.Describe(); got != "first_name=Anna, last_name=S253" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestRun_JSON(t *testing.T) {
	t.Parallel()

	r := sampleRun()
	r.ErrorMessage = "partial"
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, want := range []string{`"scheme_id":"mk1"`, `"skip_reason":"column not found"`, `"error":"partial"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON missing %s: %s", want, data)
		}
	}

	var back Run
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(back.Hits()) != 1 || back.Attack[0].Risk != SeverityCritical {
		t.Errorf("decoded run lost data: %+v", back.Attack)
	}
}

func TestProfile_Attributes(t *testing.T) {
	t.Parallel()

	p := &Profile{Attributes: map[string]string{AttrFirstName: "Anna", AttrDOB: ""}}
	if p.AttributeCount() != 1 {
		t.Errorf("AttributeCount() = %d, want 1", p.AttributeCount())
	}
	p.AddScheme("mk1")
	p.AddScheme("mk1")
	if len(p.Schemes) != 1 {
		t.Errorf("Schemes = %v", p.Schemes)
	}
}

func TestColumnCorrelation_BestFor(t *testing.T) {
	t.Parallel()

	c := ColumnCorrelation{Best: []CorrelationScore{{Metric: MetricSpearman, SchemeID: "mk1", Value: 0.9}}}
	if s, ok := c.BestFor(MetricSpearman); !ok || s.SchemeID != "mk1" {
		t.Errorf("BestFor(spearman) = %+v, %v", s, ok)
	}
	if _, ok := c.BestFor(MetricCosine); ok {
		t.Error("metric without positive score must be absent")
	}
}
