package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/mkattack/internal/model"
)

// DefaultHitLimit is the number of hits listed per scheme unless verbose.
const DefaultHitLimit = 10

// SimpleWriter outputs human-readable text reports.
//
// Design decision: plain ASCII without ANSI colors, so the output can be
// piped to files or other tools unchanged.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections without content are shown.
	showEmpty bool

	// verbose lists every hit and every correlation score.
	verbose bool

	// hitLimit caps the hits listed per scheme when not verbose.
	hitLimit int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithHitLimit sets the number of hits listed per scheme.
func WithHitLimit(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n > 0 {
			w.hitLimit = n
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		hitLimit:   DefaultHitLimit,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	if len(run.Attack) > 0 || w.showEmpty {
		w.writeSummary(&sb, run)
		w.writeAttack(&sb, run)
	}
	if run.Correlation != nil {
		w.writeCorrelation(&sb, run.Correlation)
	}
	if run.Profiles != nil {
		w.writeProfiles(&sb, run.Profiles)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                  MATCH-KEY RE-IDENTIFICATION REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if run.ID > 0 {
		fmt.Fprintf(sb, "Run:            #%d\n", run.ID)
	}
	if run.Reference != "" {
		fmt.Fprintf(sb, "Reference:      %s\n", run.Reference)
	}
	if run.Observed != "" {
		fmt.Fprintf(sb, "Observed:       %s\n", run.Observed)
	}
	if run.TopK > 0 {
		fmt.Fprintf(sb, "Top-K:          %d\n", run.TopK)
	}
	fmt.Fprintf(sb, "Started:        %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if len(run.PerformedStages) > 0 {
		fmt.Fprintf(sb, "Stages:         %s\n", strings.Join(run.PerformedStages, ", "))
	}
	fmt.Fprintf(sb, "Status:         %s\n\n", status(run))

	for _, issue := range run.Issues {
		fmt.Fprintf(sb, "  [!] %s\n", issue)
	}
	if len(run.Issues) > 0 {
		sb.WriteString("\n")
	}
}

// writeSummary writes the risk summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, run *model.Run) {
	s := run.Summarize()
	section(sb, "RISK SUMMARY")

	fmt.Fprintf(sb, "  CRITICAL: %d\n", s.CriticalCount)
	fmt.Fprintf(sb, "  HIGH:     %d\n", s.HighCount)
	fmt.Fprintf(sb, "  MEDIUM:   %d\n", s.MediumCount)
	fmt.Fprintf(sb, "  LOW:      %d\n", s.LowCount)
	fmt.Fprintf(sb, "  INFO:     %d\n", s.InfoCount)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  SCHEMES:  %d attacked, %d skipped\n", s.Attacked, s.Skipped)
	fmt.Fprintf(sb, "  RECOVERED: %d of %d observed records\n", s.Hits, s.Observed)
	if s.Uncovered > 0 {
		fmt.Fprintf(sb, "  UNCOVERED: %d distinct digests outside the guess space (unknown, not safe)\n", s.Uncovered)
	}
	sb.WriteString("\n")
}

// writeAttack writes one block per scheme in registry order.
func (w *SimpleWriter) writeAttack(sb *strings.Builder, run *model.Run) {
	section(sb, "SCHEMES")

	for _, res := range run.Attack {
		if res.Skipped {
			fmt.Fprintf(sb, "[ ] %-14s SKIPPED - %s\n", res.SchemeID, res.SkipReason)
			continue
		}
		fmt.Fprintf(sb, "[%s] %-14s %-8s %d/%d recovered (%.1f%%), guess space %d\n",
			getRiskIndicator(res.Risk), res.SchemeID, res.RiskText,
			res.HitCount, res.Observed, res.RecoveryRate*100, res.GuessSpace)
		if w.verbose && res.Label != "" {
			fmt.Fprintf(sb, "    Fields: %s\n", res.Label)
		}

		limit := len(res.Hits)
		if !w.verbose && limit > w.hitLimit {
			limit = w.hitLimit
		}
		for _, h := range res.Hits[:limit] {
			fmt.Fprintf(sb, "    %s  %s\n", truncateString(h.Digest, 16), h.Describe())
		}
		if rest := len(res.Hits) - limit; rest > 0 {
			fmt.Fprintf(sb, "    ... %d more (use -v to list all)\n", rest)
		}
		if w.verbose && res.Risk > model.SeverityInfo {
			fmt.Fprintf(sb, "    Recommendation: %s\n", model.GetAdvice(res.Risk).Recommendation)
		}
	}
	sb.WriteString("\n")
}

// writeCorrelation writes the best scheme per unlabeled column.
func (w *SimpleWriter) writeCorrelation(sb *strings.Builder, r *model.CorrelationReport) {
	section(sb, "FREQUENCY CORRELATION")
	fmt.Fprintf(sb, "Mode: %s, minimum overlap: %d\n\n", r.Mode, r.MinOverlap)

	for _, col := range r.Columns {
		fmt.Fprintf(sb, "  %s (%d distinct digests)\n", col.Column, col.Distinct)
		if len(col.Best) == 0 {
			sb.WriteString("    no positive correlation\n")
		}
		for _, best := range col.Best {
			fmt.Fprintf(sb, "    %-15s %-14s %.4f (overlap %d)\n", best.Metric, best.SchemeID, best.Value, best.Overlap)
		}
		if w.verbose {
			for _, s := range col.Scores {
				fmt.Fprintf(sb, "      %s/%s = %.4f\n", s.SchemeID, s.Metric, s.Value)
			}
		}
	}
	if len(r.SkippedSchemes) > 0 {
		fmt.Fprintf(sb, "\n  Not scored: %s\n", strings.Join(r.SkippedSchemes, ", "))
	}
	sb.WriteString("\n")
}

// writeProfiles writes the consolidated identities.
func (w *SimpleWriter) writeProfiles(sb *strings.Builder, r *model.ProfileReport) {
	section(sb, "PROFILES")
	fmt.Fprintf(sb, "Total: %d profiles from %d hits (%d incomplete, %d unrecognized, %d conflicts)\n\n",
		r.Total, r.Merged, r.Incomplete, r.Unrecognized, r.Conflicts)

	for _, p := range r.Profiles {
		fmt.Fprintf(sb, "  * %s\n", p.Key)
		for _, attr := range model.ProfileAttributes {
			v := p.Get(attr)
			if v == "" {
				continue
			}
			if attr == model.AttrGender && p.GenderInferred {
				v += " (inferred)"
			}
			fmt.Fprintf(sb, "    %-14s %s\n", attr+":", v)
		}
		fmt.Fprintf(sb, "    %-14s %s\n", "schemes:", strings.Join(p.Schemes, ", "))
		for _, c := range p.Conflicts {
			fmt.Fprintf(sb, "    [!] %s: kept %q, %s gave %q\n", c.Attribute, c.Old, c.SchemeID, c.New)
		}
	}
	sb.WriteString("\n")
}

// getRiskIndicator returns a visual indicator for the risk level.
func getRiskIndicator(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by mkattack\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
