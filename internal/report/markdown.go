package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/voiceline/internal/database"
	"github.com/nao1215/voiceline/internal/model"
)

// MarkdownWriter outputs reports in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(run *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeTotals(md, run)
	w.writeSources(md, run)
	w.writeFailures(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.RunReport) {
	md.H1("voiceline Run Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID + "`"},
			{"Destination", run.Destination},
			{"Output", run.Output},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.Duration().Round(time.Millisecond).String()},
			{"Status", w.statusText(run)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) statusText(run *model.RunReport) string {
	switch runStatus(run) {
	case "aborted":
		return "❌ Aborted"
	case "complete":
		return "✅ Complete"
	default:
		return "⚠️ Completed with failures"
	}
}

// writeTotals writes the aggregated statistics with a chart and an alert.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, run *model.RunReport) {
	totals := run.Totals()

	md.H2("Totals")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Kept", strconv.Itoa(totals.Kept)},
			{"Missing audio", strconv.Itoa(totals.MissingAudio)},
			{"Empty quote", strconv.Itoa(totals.EmptyQuote)},
			{"Duplicate", strconv.Itoa(totals.Duplicates)},
			{"**Items**", "**" + strconv.Itoa(totals.Items) + "**"},
		},
	})
	md.PlainText("")

	if totals.Items > 0 {
		w.writePieChart(md, totals)
	}
	w.writeAlert(md, run)
}

// writePieChart writes a mermaid pie chart of item outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, totals model.ScanStats) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("List Item Outcomes"),
		piechart.WithShowData(true),
	)

	slices := []struct {
		label string
		count int
	}{
		{"Kept", totals.Kept},
		{"Missing audio", totals.MissingAudio},
		{"Empty quote", totals.EmptyQuote},
		{"Duplicate", totals.Duplicates},
	}
	for _, s := range slices {
		if s.count > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.RunReport) {
	failed := run.FailedCount()
	switch {
	case run.Aborted:
		md.Cautionf("The run stopped early: %d source(s) failed and the remaining sources were not processed.", failed)
	case failed > 0:
		md.Warningf("%d source(s) failed and their tabs were not updated.", failed)
	case run.Totals().Kept == 0:
		md.Note("No quotes were extracted.")
	default:
		md.Tip("Every source was written.")
	}
	md.PlainText("")
}

// writeSources writes one table row per source.
func (w *MarkdownWriter) writeSources(md *markdown.Markdown, run *model.RunReport) {
	md.H2("Sources")
	md.PlainText("")

	if len(run.Sources) == 0 {
		md.PlainText("No sources processed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Sources))
	for i, src := range run.Sources {
		tab := src.TabName
		if tab == "" {
			tab = "-"
		}
		rows[i] = []string{
			tab,
			truncateString(src.URL, 60),
			strconv.Itoa(src.Stats.Items),
			strconv.Itoa(src.Stats.Kept),
			strconv.Itoa(src.Stats.Skipped()),
			sourceStatus(src),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Tab", "URL", "Items", "Kept", "Skipped", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes collapsible error details for failed sources.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, run *model.RunReport) {
	if run.FailedCount() == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	for _, src := range run.Sources {
		if src.Failed() {
			md.Details(src.URL, src.ErrorMessage)
		}
	}
	md.PlainText("")
}

// WriteDiff outputs a run comparison in Markdown format.
func (w *MarkdownWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("voiceline Run Diff")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"From", "`" + diff.From + "`"},
			{"To", "`" + diff.To + "`"},
		},
	})
	md.PlainText("")

	rows := make([][]string, 0, len(diff.Tabs))
	for _, tab := range diff.Tabs {
		if !tab.Changed() && !tab.PageChanged {
			continue
		}
		pageChanged := "no"
		if tab.PageChanged {
			pageChanged = "yes"
		}
		rows = append(rows, []string{
			tab.Tab,
			strconv.Itoa(len(tab.Added)),
			strconv.Itoa(len(tab.Removed)),
			pageChanged,
		})
	}

	if len(rows) == 0 {
		md.Tip("No quote changes between the two runs.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	md.H2("Changed Tabs")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Tab", "Added", "Removed", "Page changed"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, tab := range diff.Tabs {
		if !tab.Changed() {
			continue
		}
		md.H3(tab.Tab)
		md.PlainText("")
		if len(tab.Added) > 0 {
			md.PlainText("**Added**")
			md.PlainText("")
			md.BulletList(quotes(tab.Added)...)
			md.PlainText("")
		}
		if len(tab.Removed) > 0 {
			md.PlainText("**Removed**")
			md.PlainText("")
			md.BulletList(quotes(tab.Removed)...)
			md.PlainText("")
		}
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func quotes(pairs []model.QuotePair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Quote
	}
	return out
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [voiceline](https://github.com/nao1215/voiceline)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
