package profile

import (
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/mkattack/internal/model"
	"github.com/nao1215/mkattack/internal/population"
	"github.com/nao1215/mkattack/internal/scheme"
)

// hit builds a hit for a built-in scheme from raw values in field order.
func hit(t *testing.T, id string, raws ...string) model.Hit {
	t.Helper()
	s, ok := scheme.Builtin().Get(id)
	if !ok {
		t.Fatalf("scheme %s not registered", id)
	}
	h := model.Hit{SchemeID: id, Digest: "digest-" + id}
	for i, raw := range raws {
		fs := s.FieldAt(i)
		h.Values = append(h.Values, model.FieldValue{
			Field:     string(fs.Field),
			Transform: fs.Transform.String(),
			Raw:       raw,
			Token:     s.Token(i, raw),
		})
	}
	return h
}

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key("Anna ", " Schmidt", "1985", ""); got != "anna_schmidt_1985" {
		t.Errorf("Key() = %q", got)
	}
	if got := Key("Anna", "Schmidt", "1985", "1985-06-23"); got != "anna_schmidt_1985_19850623" {
		t.Errorf("Key() with dob = %q", got)
	}
	if Key("ANNA", "schmidt", "1985", "") != Key("anna", "SCHMIDT ", "1985", "") {
		t.Error("Key must be a function of normalized fields")
	}
}

func TestConsolidator_MonotonicEnrichment(t *testing.T) {
	t.Parallel()

	// Neither scheme yields a plaintext first name.
	c := New(scheme.Builtin())
	if err := c.Add(hit(t, "mk10", "Schmidt", "10115", "1985")); !errors.Is(err, ErrIncompleteHit) {
		t.Fatalf("Add(mk10) error = %v, want ErrIncompleteHit", err)
	}
	if err := c.Add(hit(t, "mk5", "Anna", "Schmidt", "1985")); !errors.Is(err, ErrIncompleteHit) {
		t.Fatalf("Add(mk5) error = %v, want ErrIncompleteHit", err)
	}

	custom := scheme.MustDefine("fn_ln_yob", []scheme.FieldSpec{
		scheme.Plain(scheme.FirstName), scheme.Plain(scheme.LastName), scheme.Plain(scheme.YearOfBirth),
	})
	reg, err := scheme.Builtin().Merge(custom)
	if err != nil {
		t.Fatal(err)
	}
	c = New(reg)

	first := model.Hit{SchemeID: "fn_ln_yob", Digest: "d1", Values: []model.FieldValue{
		{Field: "first_name", Raw: "Anna"}, {Field: "last_name", Raw: "Schmidt"}, {Field: "year_of_birth", Raw: "1985"},
	}}
	if err := c.Add(first); err != nil {
		t.Fatalf("Add(first) error = %v", err)
	}
	if err := c.Add(hit(t, "mk1", "anna", "SCHMIDT", "1985-06-23")); err != nil {
		t.Fatalf("Add(mk1) error = %v", err)
	}

	r := c.Report()
	if r.Total != 1 {
		t.Fatalf("Total = %d, want 1 profile", r.Total)
	}
	p := r.Profiles[0]
	if p.Get(model.AttrDOB) != "1985-06-23" {
		t.Errorf("dob = %q, want it filled in", p.Get(model.AttrDOB))
	}
	if p.Key != "anna_schmidt_1985_19850623" {
		t.Errorf("Key = %q", p.Key)
	}
	if p.Digest != "d1" {
		t.Errorf("Digest = %q, want the first digest", p.Digest)
	}
	if len(p.Schemes) != 2 || len(p.Conflicts) != 0 {
		t.Errorf("Schemes = %v Conflicts = %v", p.Schemes, p.Conflicts)
	}
}

func TestConsolidator_Conflict(t *testing.T) {
	t.Parallel()

	c := New(scheme.Builtin())
	if err := c.Add(hit(t, "mk1", "Anna", "Schmidt", "1985-06-23")); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(hit(t, "mk_randall_1", "Anna", "Schmidt", "1985-07-01")); err != nil {
		t.Fatal(err)
	}

	r := c.Report()
	if r.Total != 1 {
		t.Fatalf("Total = %d, want 1", r.Total)
	}
	p := r.Profiles[0]
	if p.Get(model.AttrDOB) != "1985-06-23" {
		t.Errorf("dob = %q, want the first one kept", p.Get(model.AttrDOB))
	}
	if len(p.Conflicts) != 1 || r.Conflicts != 1 {
		t.Fatalf("Conflicts = %+v", p.Conflicts)
	}
	want := model.Conflict{ProfileKey: p.Key, Attribute: "dob", Old: "1985-06-23", New: "1985-07-01", SchemeID: "mk_randall_1"}
	if p.Conflicts[0] != want {
		t.Errorf("conflict = %+v, want %+v", p.Conflicts[0], want)
	}
}

func TestConsolidator_IdempotentRemerge(t *testing.T) {
	t.Parallel()

	c := New(scheme.Builtin())
	h := hit(t, "mk1", "Anna", "Schmidt", "1985-06-23")
	h2 := hit(t, "mk_randall_1", "ANNA", "schmidt", "19850623")
	for _, x := range []model.Hit{h, h2} {
		if err := c.Add(x); err != nil {
			t.Fatal(err)
		}
	}
	before := c.Report().Profiles[0].AttributeCount()
	if err := c.Add(h); err != nil {
		t.Fatal(err)
	}
	after := c.Report()
	if got := after.Profiles[0].AttributeCount(); got != before {
		t.Errorf("AttributeCount = %d after re-merge, want %d", got, before)
	}
	if after.Conflicts != 0 {
		t.Errorf("re-merge logged conflicts: %d", after.Conflicts)
	}
}

func TestConsolidator_TransformedFieldsNotMerged(t *testing.T) {
	t.Parallel()

	c := New(scheme.Builtin())
	if err := c.Add(hit(t, "mk1", "Anna", "Schmidt", "1985-06-23")); err != nil {
		t.Fatal(err)
	}
	// mk8 reveals only the year through its dob prefix.
	if err := c.Add(hit(t, "mk8", "Anna", "Schmidt", "1985-06-30")); err != nil {
		t.Fatalf("Add(mk8) error = %v", err)
	}
	p := c.Report().Profiles[0]
	if p.Get(model.AttrDOB) != "1985-06-23" || len(p.Conflicts) != 0 {
		t.Errorf("dob prefix must not be merged as a dob: %+v", p)
	}
}

func TestConsolidator_UnrecognizedShape(t *testing.T) {
	t.Parallel()

	c := New(scheme.Builtin())

	tests := []struct {
		name string
		hit  model.Hit
	}{
		{name: "unknown scheme", hit: model.Hit{SchemeID: "mk99"}},
		{name: "short tuple", hit: model.Hit{SchemeID: "mk1", Values: []model.FieldValue{{Field: "first_name", Raw: "Anna"}}}},
		{name: "wrong field", hit: model.Hit{SchemeID: "mk1", Values: []model.FieldValue{
			{Field: "first_name", Raw: "Anna"}, {Field: "email", Raw: "x"}, {Field: "dob", Raw: "1985-06-23"},
		}}},
	}
	for _, tt := range tests {
		if err := c.Add(tt.hit); !errors.Is(err, ErrUnrecognizedHit) {
			t.Errorf("%s: Add() error = %v, want ErrUnrecognizedHit", tt.name, err)
		}
	}

	c.AddAll([]model.Hit{hit(t, "mk1", "Anna", "Schmidt", "1985-06-23"), {SchemeID: "mk99"}})
	r := c.Report()
	if r.Total != 1 || r.Unrecognized != 4 || r.Merged != 1 {
		t.Errorf("report counts = %+v", r)
	}
}

func TestConsolidator_GenderInference(t *testing.T) {
	t.Parallel()

	lookup := NewStaticGenderLookup(map[string]string{"Anna": "F", "Ben": "M"})
	c := New(scheme.Builtin(), WithGenderLookup(lookup))
	if err := c.Add(hit(t, "mk1", "Anna", "Schmidt", "1985-06-23")); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(hit(t, "mk1", "Ben", "Meyer", "1990-01-02")); err != nil {
		t.Fatal(err)
	}
	if err := c.Add(hit(t, "mk_randall_3", "Meyer", "1990-01-02", "X")); err != nil && !errors.Is(err, ErrIncompleteHit) {
		t.Fatal(err)
	}

	r := c.Report()
	anna := r.Profiles[0]
	if anna.Get(model.AttrGender) != "F" || !anna.GenderInferred {
		t.Errorf("Anna gender = %q inferred=%v", anna.Get(model.AttrGender), anna.GenderInferred)
	}

	// Inference happens on the report copy only.
	if again := c.Report(); again.Profiles[0].Get(model.AttrGender) != "F" {
		t.Error("Report must be repeatable")
	}
}

func TestPopulationGenderLookup(t *testing.T) {
	t.Parallel()

	csv := "first_name,gender\nAnna,F\nanna,F\nAnna,M\nKim,M\nKim,F\nLee,\n"
	tbl, err := population.ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	l, err := NewPopulationGenderLookup(tbl)
	if err != nil {
		t.Fatalf("NewPopulationGenderLookup() error = %v", err)
	}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{name: "ANNA", want: "F", wantOK: true},
		{name: "Kim", want: "M", wantOK: true},
		{name: "Lee", wantOK: false},
		{name: "Zoe", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := l.Gender(tt.name)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Gender(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}

	noGender, _ := population.ReadCSV(strings.NewReader("first_name\nAnna\n"))
	if _, err := NewPopulationGenderLookup(noGender); !errors.Is(err, population.ErrMissingColumn) {
		t.Errorf("missing gender column error = %v", err)
	}
}
