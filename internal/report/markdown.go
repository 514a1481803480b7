package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/mkattack/internal/model"
)

// MarkdownWriter outputs runs in GitHub Flavored Markdown for sharing in
// issues and data release reviews.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	if len(run.Attack) > 0 {
		summary := run.Summarize()
		w.writeSummary(md, summary)
		w.writeSchemes(md, run)
		w.writeHits(md, run)
	}
	if run.Correlation != nil {
		w.writeCorrelation(md, run.Correlation)
	}
	if run.Profiles != nil {
		w.writeProfiles(md, run.Profiles)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("Match-Key Re-identification Report")
	md.PlainText("")

	rows := [][]string{}
	if run.ID > 0 {
		rows = append(rows, []string{"Run", "#" + strconv.FormatInt(run.ID, 10)})
	}
	if run.Reference != "" {
		rows = append(rows, []string{"Reference", "`" + run.Reference + "`"})
	}
	if run.Observed != "" {
		rows = append(rows, []string{"Observed", "`" + run.Observed + "`"})
	}
	if run.TopK > 0 {
		rows = append(rows, []string{"Top-K", strconv.Itoa(run.TopK)})
	}
	rows = append(rows,
		[]string{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
		[]string{"Status", status(run)},
	)
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	if len(run.Issues) > 0 {
		md.Warningf("%d scheme/column issue(s) found before attacking.", len(run.Issues))
		md.BulletList(run.Issues...)
		md.PlainText("")
	}
}

// writeSummary writes the risk summary, a pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.Summary) {
	md.H2("Risk Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Risk", "Schemes"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(s.CriticalCount)},
			{"🟠 High", strconv.Itoa(s.HighCount)},
			{"🟡 Medium", strconv.Itoa(s.MediumCount)},
			{"🔵 Low", strconv.Itoa(s.LowCount)},
			{"⚪ Info", strconv.Itoa(s.InfoCount)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"**Recovered records**", fmt.Sprintf("**%d / %d**", s.Hits, s.Observed)},
		},
	})
	md.PlainText("")

	if s.Attacked > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of schemes per risk grade.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Schemes by Re-identification Risk"),
		piechart.WithShowData(true),
	)

	if s.CriticalCount > 0 {
		chart.LabelAndIntValue("Critical", uint64(s.CriticalCount))
	}
	if s.HighCount > 0 {
		chart.LabelAndIntValue("High", uint64(s.HighCount))
	}
	if s.MediumCount > 0 {
		chart.LabelAndIntValue("Medium", uint64(s.MediumCount))
	}
	if s.LowCount > 0 {
		chart.LabelAndIntValue("Low", uint64(s.LowCount))
	}
	if s.InfoCount > 0 {
		chart.LabelAndIntValue("Info", uint64(s.InfoCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the highest risk.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.Summary) {
	switch {
	case s.CriticalCount > 0:
		md.Cautionf("%d scheme(s) let most records be re-identified with a top-K dictionary. %s",
			s.CriticalCount, model.GetAdvice(model.SeverityCritical).Recommendation)
	case s.HighCount > 0:
		md.Warningf("%d scheme(s) leak a large share of identities. %s",
			s.HighCount, model.GetAdvice(model.SeverityHigh).Recommendation)
	case s.MediumCount > 0:
		md.Importantf("%d scheme(s) leak identities with common attribute values.", s.MediumCount)
	case s.Hits > 0:
		md.Note("Only a few records were recovered, but each one is a real identity.")
	default:
		md.Tip(model.GetAdvice(model.SeverityInfo).Recommendation)
	}
	md.PlainText("")
}

// writeSchemes writes one table row per scheme.
func (w *MarkdownWriter) writeSchemes(md *markdown.Markdown, run *model.Run) {
	md.H2("Schemes")
	md.PlainText("")

	rows := make([][]string, 0, len(run.Attack))
	for _, res := range run.Attack {
		if res.Skipped {
			rows = append(rows, []string{"`" + res.SchemeID + "`", res.Column, "-", "-", "-", "-", "skipped: " + res.SkipReason})
			continue
		}
		rows = append(rows, []string{
			"`" + res.SchemeID + "`",
			res.Column,
			strconv.Itoa(res.Observed),
			strconv.Itoa(res.HitCount),
			fmt.Sprintf("%.1f%%", res.RecoveryRate*100),
			strconv.Itoa(res.Uncovered),
			res.RiskText,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Scheme", "Column", "Observed", "Recovered", "Rate", "Uncovered", "Risk"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeHits writes the recovered tuples per scheme in collapsed sections.
func (w *MarkdownWriter) writeHits(md *markdown.Markdown, run *model.Run) {
	if len(run.Hits()) == 0 {
		return
	}
	md.H2("Recovered Records")
	md.PlainText("")

	for _, res := range run.Attack {
		if len(res.Hits) == 0 {
			continue
		}
		lines := make([]string, len(res.Hits))
		for i, h := range res.Hits {
			lines[i] = truncateString(h.Digest, 16) + "  " + h.Describe()
		}
		md.Details(fmt.Sprintf("%s (%d)", res.SchemeID, len(res.Hits)), strings.Join(lines, "\n"))
	}
	md.PlainText("")
}

// writeCorrelation writes the best candidate per unlabeled column.
func (w *MarkdownWriter) writeCorrelation(md *markdown.Markdown, r *model.CorrelationReport) {
	md.H2("Frequency Correlation")
	md.PlainText("")
	md.PlainTextf("Alignment: %s, minimum overlap: %d", r.Mode, r.MinOverlap)
	md.PlainText("")

	header := []string{"Column", "Distinct"}
	for _, m := range model.Metrics {
		header = append(header, string(m))
	}
	rows := make([][]string, 0, len(r.Columns))
	for _, col := range r.Columns {
		row := []string{col.Column, strconv.Itoa(col.Distinct)}
		for _, m := range model.Metrics {
			if best, ok := col.BestFor(m); ok {
				row = append(row, fmt.Sprintf("`%s` %.3f", best.SchemeID, best.Value))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")

	if len(r.SkippedSchemes) > 0 {
		md.Note("Not scored (no reference histogram): " + strings.Join(r.SkippedSchemes, ", "))
		md.PlainText("")
	}
}

// writeProfiles writes the consolidated identities.
func (w *MarkdownWriter) writeProfiles(md *markdown.Markdown, r *model.ProfileReport) {
	md.H2("Profiles")
	md.PlainText("")
	md.PlainTextf("%d profile(s) from %d hit(s); %d incomplete, %d unrecognized.",
		r.Total, r.Merged, r.Incomplete, r.Unrecognized)
	md.PlainText("")

	if r.Total == 0 {
		return
	}

	header := append([]string{"Key"}, model.ProfileAttributes...)
	header = append(header, "Schemes")
	rows := make([][]string, 0, len(r.Profiles))
	for _, p := range r.Profiles {
		row := []string{"`" + p.Key + "`"}
		for _, attr := range model.ProfileAttributes {
			v := p.Get(attr)
			switch {
			case v == "":
				v = "-"
			case attr == model.AttrGender && p.GenderInferred:
				v += " *"
			}
			row = append(row, v)
		}
		row = append(row, strings.Join(p.Schemes, ", "))
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")

	if r.Conflicts > 0 {
		var lines []string
		for _, p := range r.Profiles {
			for _, c := range p.Conflicts {
				lines = append(lines, fmt.Sprintf("`%s` %s: kept %s, %s gave %s", c.ProfileKey, c.Attribute, c.Old, c.SchemeID, c.New))
			}
		}
		md.Warningf("%d conflicting attribute value(s); the first value was kept.", r.Conflicts)
		md.BulletList(lines...)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by mkattack*")
}
