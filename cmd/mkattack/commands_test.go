package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/mkattack/internal/config"
)

const testReference = `first_name,last_name,dob,gender
Anna,Schmidt,1985-06-23,F
Ben,Okafor,1990-01-02,M
Carla,Rossi,1977-11-11,F
Anna,Okafor,1990-01-02,F
`

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

type workspace struct {
	dir       string
	config    string
	reference string
	observed  string
}

// newWorkspace writes a config file and a reference table, and forwards
// the reference through mk1 and mk4 into an observed table.
func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	w := workspace{
		dir:       dir,
		config:    filepath.Join(dir, "mkattack.yaml"),
		reference: filepath.Join(dir, "reference.csv"),
		observed:  filepath.Join(dir, "observed.csv"),
	}
	if err := os.WriteFile(w.config, []byte("defaults:\n  top_k: 10\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(w.reference, []byte(testReference), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "forward", "-c", w.config, "-r", w.reference, "-s", "mk1,mk4", "-o", w.observed); err != nil {
		t.Fatalf("forward: %v", err)
	}
	return w
}

type jsonReport struct {
	Version string `json:"version"`
	Summary struct {
		Schemes int `json:"schemes"`
		Hits    int `json:"hits"`
	} `json:"summary"`
	Run struct {
		ID     int64 `json:"id"`
		Attack []struct {
			SchemeID   string `json:"scheme_id"`
			Skipped    bool   `json:"skipped"`
			SkipReason string `json:"skip_reason"`
		} `json:"attack"`
		Correlation *struct {
			Columns []struct {
				Column string `json:"column"`
			} `json:"columns"`
		} `json:"correlation"`
		Profiles *struct {
			Total int `json:"total"`
		} `json:"profiles"`
	} `json:"run"`
}

func decodeReport(t *testing.T, out string) jsonReport {
	t.Helper()
	var r jsonReport
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, out)
	}
	return r
}

func TestForwardCmd(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	content, err := os.ReadFile(w.observed)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if lines[0] != "mk1,mk4" {
		t.Errorf("header = %q, want mk1,mk4", lines[0])
	}
	if len(lines) != 5 {
		t.Errorf("expected 4 rows and a header, got %d lines", len(lines))
	}
}

func TestAttackCmd(t *testing.T) {
	t.Parallel()

	t.Run("recovers every forwarded row", func(t *testing.T) {
		t.Parallel()

		w := newWorkspace(t)
		out, err := execute(t, "attack", "-c", w.config,
			"-r", w.reference, "-O", w.observed, "-s", "mk1,mk4", "--no-save", "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		r := decodeReport(t, out)
		if r.Summary.Schemes != 2 {
			t.Errorf("schemes = %d, want 2", r.Summary.Schemes)
		}
		if r.Summary.Hits != 8 {
			t.Errorf("hits = %d, want 8", r.Summary.Hits)
		}
		if r.Version == "" {
			t.Error("expected a version in the JSON report")
		}
	})

	t.Run("sharded workers give the same hits", func(t *testing.T) {
		t.Parallel()

		w := newWorkspace(t)
		out, err := execute(t, "attack", "-c", w.config,
			"-r", w.reference, "-O", w.observed, "-s", "mk1", "-w", "4", "--no-save", "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r := decodeReport(t, out); r.Summary.Hits != 4 {
			t.Errorf("hits = %d, want 4", r.Summary.Hits)
		}
	})

	t.Run("markdown report with profiles to a file", func(t *testing.T) {
		t.Parallel()

		w := newWorkspace(t)
		reportPath := filepath.Join(w.dir, "out", "report.md")
		if _, err := execute(t, "attack", "-c", w.config,
			"-r", w.reference, "-O", w.observed, "-s", "mk1",
			"--profiles", "--genders-from", w.reference,
			"--no-save", "-m", "-o", reportPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("report not written: %v", err)
		}
		for _, want := range []string{"Match-Key Re-identification Report", "Profiles"} {
			if !strings.Contains(string(content), want) {
				t.Errorf("report missing %q", want)
			}
		}
	})

	t.Run("configuration errors", func(t *testing.T) {
		t.Parallel()

		w := newWorkspace(t)
		tests := []struct {
			name string
			args []string
			want error
		}{
			{
				name: "missing reference",
				args: []string{"attack", "-c", w.config, "-O", w.observed, "--no-save"},
				want: config.ErrNoReference,
			},
			{
				name: "missing observed",
				args: []string{"attack", "-c", w.config, "-r", w.reference, "--no-save"},
				want: config.ErrNoObserved,
			},
			{
				name: "conflicting formats",
				args: []string{"attack", "-c", w.config, "-r", w.reference, "-O", w.observed, "-j", "-m", "--no-save"},
				want: config.ErrConflictingReportFormats,
			},
			{
				name: "invalid top-k",
				args: []string{"attack", "-c", w.config, "-r", w.reference, "-O", w.observed, "-k", "0", "--no-save"},
				want: config.ErrInvalidTopK,
			},
			{
				name: "invalid max guess space",
				args: []string{"attack", "-c", w.config, "-r", w.reference, "-O", w.observed, "--max-guess-space", "0", "--no-save"},
				want: config.ErrInvalidMaxGuessSpace,
			},
			{
				name: "missing config file",
				args: []string{"attack", "-c", filepath.Join(w.dir, "absent.yaml"), "-r", w.reference, "-O", w.observed},
				want: config.ErrConfigNotFound,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				_, err := execute(t, tt.args...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestCorrelateCmd(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	out, err := execute(t, "correlate", "-c", w.config,
		"-r", w.reference, "-O", w.observed, "--metric", "cosine", "--no-save", "-j")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := decodeReport(t, out)
	if r.Run.Correlation == nil {
		t.Fatal("expected a correlation report")
	}
	if len(r.Run.Correlation.Columns) != 2 {
		t.Errorf("expected 2 correlated columns, got %d", len(r.Run.Correlation.Columns))
	}

	if _, err := execute(t, "correlate", "-c", w.config,
		"-r", w.reference, "-O", w.observed, "--mode", "fuzzy", "--no-save"); !errors.Is(err, config.ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestStoredRuns(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)
	dbDir := filepath.Join(w.dir, "db")

	out, err := execute(t, "runs", "-c", w.config, "--db-dir", dbDir)
	if err != nil {
		t.Fatalf("runs on empty database: %v", err)
	}
	if !strings.Contains(out, "No runs found") {
		t.Errorf("unexpected output: %s", out)
	}

	out, err = execute(t, "attack", "-c", w.config,
		"-r", w.reference, "-O", w.observed, "-s", "mk1", "--db-dir", dbDir, "-j")
	if err != nil {
		t.Fatalf("attack: %v", err)
	}
	id := decodeReport(t, out).Run.ID
	if id == 0 {
		t.Fatal("expected the run to be saved")
	}

	out, err = execute(t, "runs", "-c", w.config, "--db-dir", dbDir)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "Stored runs (1)") {
		t.Errorf("unexpected listing: %s", out)
	}

	out, err = execute(t, "runs", "-c", w.config, "--db-dir", dbDir, "--id", "1", "-j")
	if err != nil {
		t.Fatalf("runs --id: %v", err)
	}
	if r := decodeReport(t, out); r.Summary.Hits != 4 {
		t.Errorf("stored run hits = %d, want 4", r.Summary.Hits)
	}

	out, err = execute(t, "profiles", "-c", w.config, "--db-dir", dbDir, "--run-id", "1", "-j")
	if err != nil {
		t.Fatalf("profiles --run-id: %v", err)
	}
	r := decodeReport(t, out)
	if r.Run.Profiles == nil || r.Run.Profiles.Total != 4 {
		t.Errorf("expected 4 profiles, got %+v", r.Run.Profiles)
	}

	out, err = execute(t, "attack", "-c", w.config,
		"-r", w.reference, "-O", w.observed, "-s", "mk1", "--max-guess-space", "1", "--db-dir", dbDir, "-j")
	if err != nil {
		t.Fatalf("attack above the guess space limit: %v", err)
	}
	r = decodeReport(t, out)
	if len(r.Run.Attack) != 1 || !r.Run.Attack[0].Skipped {
		t.Fatalf("expected mk1 to be skipped, got %+v", r.Run.Attack)
	}
	if !strings.Contains(r.Run.Attack[0].SkipReason, "guess space exceeds limit") {
		t.Errorf("SkipReason = %q", r.Run.Attack[0].SkipReason)
	}

	out, err = execute(t, "profiles", "-c", w.config, "--db-dir", dbDir, "--run-id", strconv.FormatInt(r.Run.ID, 10), "-j")
	if err != nil {
		t.Fatalf("profiles of a run without hits: %v", err)
	}
	if r := decodeReport(t, out); r.Run.Profiles == nil || r.Run.Profiles.Total != 0 {
		t.Errorf("expected an empty profile report, got %+v", r.Run.Profiles)
	}

	if _, err := execute(t, "runs", "-c", w.config, "--db-dir", dbDir, "--id", "99"); err == nil {
		t.Error("expected an error for an unknown run")
	}
}

func TestSchemesCmd(t *testing.T) {
	t.Parallel()

	w := newWorkspace(t)

	out, err := execute(t, "schemes", "-c", w.config, "-s", "mk1,mk8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Schemes (2)", "mk8", "dob:prefix(6)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "schemes", "-c", w.config, "-s", "mk1,mk8", "-O", w.observed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Column issues (1)") {
		t.Errorf("expected mk8 to be flagged:\n%s", out)
	}
}
