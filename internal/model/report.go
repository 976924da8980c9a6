package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanStats counts what happened to every audio-bearing list item on a page.
// Skips are expected steady-state behavior, not errors.
type ScanStats struct {
	// Items is the number of list items examined.
	Items int `json:"items"`

	// Kept is the number of items that produced a QuotePair.
	Kept int `json:"kept"`

	// MissingAudio counts items without a usable .mp3 source.
	MissingAudio int `json:"missing_audio"`

	// EmptyQuote counts items whose text segments were all filtered out.
	EmptyQuote int `json:"empty_quote"`

	// Duplicates counts items whose quote was already accepted earlier in the run.
	Duplicates int `json:"duplicates"`
}

// Skipped returns the number of examined items that produced no pair.
func (s ScanStats) Skipped() int {
	return s.MissingAudio + s.EmptyQuote + s.Duplicates
}

// Add accumulates other into s.
func (s *ScanStats) Add(other ScanStats) {
	s.Items += other.Items
	s.Kept += other.Kept
	s.MissingAudio += other.MissingAudio
	s.EmptyQuote += other.EmptyQuote
	s.Duplicates += other.Duplicates
}

// SourceReport is everything recorded while processing one source address.
// Pipeline steps fill it in order: fetch, scan, format, write.
type SourceReport struct {
	// URL is the source page address.
	URL string `json:"url"`

	// TabName is the destination tab derived from URL.
	TabName string `json:"tab_name"`

	// StartedAt is when processing of this source began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when processing of this source ended.
	FinishedAt time.Time `json:"finished_at"`

	// Page is the fetched page. Nil until the fetch step succeeds.
	Page *Page `json:"page,omitempty"`

	// Result holds the accepted pairs in document order.
	Result PageResult `json:"result"`

	// Table is the formatted table handed to the sheet writer.
	Table SheetTable `json:"-"`

	// Stats summarizes the extraction outcome.
	Stats ScanStats `json:"stats"`

	// Written is true once the table was persisted.
	Written bool `json:"written"`

	// PerformedSteps lists the names of the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the error that stopped processing, if any.
	Error error `json:"-"`

	// ErrorMessage is Error rendered as text for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewSourceReport creates a report for the given source address.
func NewSourceReport(url string) *SourceReport {
	return &SourceReport{
		URL:       url,
		StartedAt: time.Now(),
		Result:    PageResult{},
	}
}

// Failed reports whether processing stopped with an error.
func (r *SourceReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// SetError records err on the report.
func (r *SourceReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// RunReport summarizes one run over all configured source addresses.
type RunReport struct {
	// ID uniquely identifies the run in the history database.
	ID string `json:"id"`

	// Destination is the spreadsheet or workbook name written to.
	Destination string `json:"destination"`

	// Output is the writer kind ("google", "xlsx" or "dry-run").
	Output string `json:"output"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Sources holds one report per processed source, in processing order.
	Sources []*SourceReport `json:"sources"`

	// Aborted is true when the run stopped before every source was processed.
	Aborted bool `json:"aborted"`
}

// NewRunReport creates a run report with a fresh random ID.
func NewRunReport(destination, output string) *RunReport {
	return &RunReport{
		ID:          uuid.NewString(),
		Destination: destination,
		Output:      output,
		StartedAt:   time.Now(),
		Sources:     make([]*SourceReport, 0),
	}
}

// AddSource appends a processed source report.
func (r *RunReport) AddSource(source *SourceReport) {
	r.Sources = append(r.Sources, source)
}

// Totals aggregates the scan statistics of every source.
func (r *RunReport) Totals() ScanStats {
	var total ScanStats
	for _, s := range r.Sources {
		total.Add(s.Stats)
	}
	return total
}

// FailedCount returns the number of sources that ended with an error.
func (r *RunReport) FailedCount() int {
	count := 0
	for _, s := range r.Sources {
		if s.Failed() {
			count++
		}
	}
	return count
}

// Duration returns the wall-clock duration of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
