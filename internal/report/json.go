package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/voiceline/internal/database"
	"github.com/nao1215/voiceline/internal/model"
)

// JSONWriter writes runs and diffs as one JSON document each, followed by a
// newline. Quote text is written verbatim: HTML escaping is off, so a quote
// containing "<" or "&" reads the same as on the wiki.
type JSONWriter struct {
	baseWriter
	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent, each line starting with
// prefix. Without it output is compact.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter writing to output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *JSONWriter) Write(run *model.RunReport) (int, error) {
	return w.encode(run)
}

// WriteDiff implements Writer.
func (w *JSONWriter) WriteDiff(diff *database.RunDiff) (int, error) {
	return w.encode(diff)
}

// encode buffers the whole document so that a marshalling error leaves the
// output untouched.
func (w *JSONWriter) encode(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.prefix != "" || w.indent != "" {
		enc.SetIndent(w.prefix, w.indent)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// JSONReport is the document written by FullJSONWriter: the run plus the
// figures a script usually wants without walking every source.
type JSONReport struct {
	Version string           `json:"version"`
	Status  string           `json:"status"`
	Totals  model.ScanStats  `json:"totals"`
	Failed  int              `json:"failed"`
	Run     *model.RunReport `json:"run"`
}

// NewJSONReport wraps run for output by the given voiceline version.
func NewJSONReport(run *model.RunReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Status:  runStatus(run),
		Totals:  run.Totals(),
		Failed:  run.FailedCount(),
		Run:     run,
	}
}

// FullJSONWriter writes runs wrapped in a JSONReport. Diffs are written
// unwrapped, as by JSONWriter.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter creates a FullJSONWriter stamping reports with version.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write implements Writer.
func (w *FullJSONWriter) Write(run *model.RunReport) (int, error) {
	return w.encode(NewJSONReport(run, w.version))
}
