package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/voiceline/internal/database"
	"github.com/nao1215/voiceline/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// Output is plain ASCII so it can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose lists every accepted quote under its source.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with every accepted quote.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(run *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeSources(&sb, run)
	w.writeTotals(&sb, run)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run information block.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        VOICELINE RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Run:         %s\n", run.ID))
	sb.WriteString(fmt.Sprintf("Destination: %s (%s)\n", run.Destination, run.Output))
	sb.WriteString(fmt.Sprintf("Started:     %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:    %s\n", run.Duration().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Status:      %s\n", strings.ToUpper(runStatus(run))))
	sb.WriteString("\n")
}

// writeSources writes one block per processed source.
func (w *SimpleWriter) writeSources(sb *strings.Builder, run *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SOURCES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(run.Sources) == 0 {
		sb.WriteString("  No sources processed\n\n")
		return
	}

	for _, src := range run.Sources {
		tab := src.TabName
		if tab == "" {
			tab = "?"
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n", sourceStatus(src), tab))
		sb.WriteString(fmt.Sprintf("    URL:     %s\n", src.URL))
		sb.WriteString(fmt.Sprintf("    Items:   %d examined, %d kept, %d skipped\n",
			src.Stats.Items, src.Stats.Kept, src.Stats.Skipped()))
		if src.Stats.Skipped() > 0 {
			sb.WriteString(fmt.Sprintf("    Skipped: %d missing audio, %d empty quote, %d duplicate\n",
				src.Stats.MissingAudio, src.Stats.EmptyQuote, src.Stats.Duplicates))
		}
		if src.ErrorMessage != "" {
			sb.WriteString(fmt.Sprintf("    Error:   %s\n", src.ErrorMessage))
		}
		if w.verbose {
			for _, pair := range src.Result {
				sb.WriteString(fmt.Sprintf("      * %s\n        %s\n", pair.Quote, pair.AudioLink))
			}
		}
		sb.WriteString("\n")
	}
}

// writeTotals writes the aggregated statistics.
func (w *SimpleWriter) writeTotals(sb *strings.Builder, run *model.RunReport) {
	totals := run.Totals()

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TOTALS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  SOURCES:       %d (%d failed)\n", len(run.Sources), run.FailedCount()))
	sb.WriteString(fmt.Sprintf("  ITEMS:         %d\n", totals.Items))
	sb.WriteString(fmt.Sprintf("  KEPT:          %d\n", totals.Kept))
	sb.WriteString(fmt.Sprintf("  MISSING AUDIO: %d\n", totals.MissingAudio))
	sb.WriteString(fmt.Sprintf("  EMPTY QUOTE:   %d\n", totals.EmptyQuote))
	sb.WriteString(fmt.Sprintf("  DUPLICATES:    %d\n", totals.Duplicates))
	sb.WriteString("\n")
}

// WriteDiff outputs a run comparison in human-readable format.
func (w *SimpleWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         VOICELINE RUN DIFF\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("From: %s\n", diff.From))
	sb.WriteString(fmt.Sprintf("To:   %s\n\n", diff.To))

	changed := 0
	for _, tab := range diff.Tabs {
		if !tab.Changed() {
			continue
		}
		changed++

		sb.WriteString(fmt.Sprintf("[%s] +%d -%d", tab.Tab, len(tab.Added), len(tab.Removed)))
		if tab.PageChanged {
			sb.WriteString(" (page changed)")
		}
		sb.WriteString("\n")
		for _, pair := range tab.Added {
			sb.WriteString(fmt.Sprintf("  + %s\n", pair.Quote))
		}
		for _, pair := range tab.Removed {
			sb.WriteString(fmt.Sprintf("  - %s\n", pair.Quote))
		}
		sb.WriteString("\n")
	}

	if changed == 0 {
		sb.WriteString("No quote changes between the two runs.\n\n")
	}

	w.writeFooter(&sb)
	return w.output.Write([]byte(sb.String()))
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by voiceline\n")
	sb.WriteString("https://github.com/nao1215/voiceline\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
