package report

import (
	"io"

	"github.com/nao1215/voiceline/internal/database"
	"github.com/nao1215/voiceline/internal/model"
)

// Writer renders run reports.
type Writer interface {
	// Write outputs the summary of a finished run.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.RunReport) (int, error)

	// WriteDiff outputs the comparison of two stored runs.
	WriteDiff(diff *database.RunDiff) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteDiff outputs the diff to all configured Writers.
func (m *MultiWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteDiff(diff)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// sourceStatus describes how a source ended.
func sourceStatus(src *model.SourceReport) string {
	switch {
	case src.Failed():
		return "failed"
	case src.Written:
		return "written"
	default:
		return "skipped"
	}
}

// runStatus describes how a run ended.
func runStatus(run *model.RunReport) string {
	failed := run.FailedCount()
	switch {
	case run.Aborted:
		return "aborted"
	case failed > 0:
		return "completed with failures"
	default:
		return "complete"
	}
}
