package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/voiceline/internal/crawler"
	"github.com/nao1215/voiceline/internal/extract"
	"github.com/nao1215/voiceline/internal/model"
	"github.com/nao1215/voiceline/internal/sheet"
)

// Step names as recorded in SourceReport.PerformedSteps.
const (
	StepFetch  = "fetch"
	StepScan   = "scan"
	StepFormat = "format"
	StepWrite  = "write"
)

// ErrNoPage is returned by steps that need a fetched page when none is present.
var ErrNoPage = errors.New("no fetched page on report")

// FetchStep downloads the source page.
type FetchStep struct {
	fetcher *crawler.Fetcher
	logger  *slog.Logger
}

// FetchStepOption configures a FetchStep.
type FetchStepOption func(*FetchStep)

// WithFetchLogger sets a custom logger for the fetch step.
func WithFetchLogger(logger *slog.Logger) FetchStepOption {
	return func(s *FetchStep) {
		s.logger = logger
	}
}

// NewFetchStep creates a fetch step backed by fetcher.
func NewFetchStep(fetcher *crawler.Fetcher, opts ...FetchStepOption) *FetchStep {
	s := &FetchStep{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return StepFetch
}

// Do fetches report.URL and stores the page on the report.
// Transport failures and non-2xx statuses are returned unchanged in kind;
// the page is still recorded when the server answered.
func (s *FetchStep) Do(ctx context.Context, report *model.SourceReport) error {
	page, err := s.fetcher.Fetch(ctx, report.URL)
	if page != nil {
		report.Page = page
	}
	if err != nil {
		return err
	}

	s.logger.Debug("fetched page",
		"url", report.URL,
		"status", page.StatusCode,
		"bytes", len(page.Raw),
	)
	return nil
}

// ScanStep extracts quote pairs from the fetched page.
// Every ScanStep of a run must share one Scanner so that deduplication
// spans all pages.
type ScanStep struct {
	scanner *extract.Scanner
	logger  *slog.Logger
}

// ScanStepOption configures a ScanStep.
type ScanStepOption func(*ScanStep)

// WithScanLogger sets a custom logger for the scan step.
func WithScanLogger(logger *slog.Logger) ScanStepOption {
	return func(s *ScanStep) {
		s.logger = logger
	}
}

// NewScanStep creates a scan step backed by scanner.
func NewScanStep(scanner *extract.Scanner, opts ...ScanStepOption) *ScanStep {
	s := &ScanStep{
		scanner: scanner,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ScanStep) Name() string {
	return StepScan
}

// Do parses the page body, the only parse a page gets, and records the
// title, the accepted pairs and statistics.
func (s *ScanStep) Do(_ context.Context, report *model.SourceReport) error {
	if report.Page == nil {
		return ErrNoPage
	}

	doc, err := crawler.Parse(bytes.NewReader(report.Page.Raw))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", report.URL, err)
	}
	report.Page.Title = doc.Title()

	result, stats := s.scanner.ScanDocument(doc)
	report.Result = result
	report.Stats = stats

	s.logger.Info("scanned page",
		"tab", report.TabName,
		"items", stats.Items,
		"kept", stats.Kept,
		"skipped", stats.Skipped(),
	)
	return nil
}

// FormatStep builds the sheet table from the page result.
type FormatStep struct{}

// NewFormatStep creates a format step.
func NewFormatStep() *FormatStep {
	return &FormatStep{}
}

// Name returns the step name.
func (s *FormatStep) Name() string {
	return StepFormat
}

// Do sets report.Table.
func (s *FormatStep) Do(_ context.Context, report *model.SourceReport) error {
	report.Table = sheet.FormatTable(report.Result)
	return nil
}

// WriteStep persists the table to the tab named after the source.
type WriteStep struct {
	writer sheet.Writer
	logger *slog.Logger
}

// WriteStepOption configures a WriteStep.
type WriteStepOption func(*WriteStep)

// WithWriteLogger sets a custom logger for the write step.
func WithWriteLogger(logger *slog.Logger) WriteStepOption {
	return func(s *WriteStep) {
		s.logger = logger
	}
}

// NewWriteStep creates a write step backed by writer.
func NewWriteStep(writer sheet.Writer, opts ...WriteStepOption) *WriteStep {
	s := &WriteStep{
		writer: writer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return StepWrite
}

// Do writes report.Table to report.TabName.
func (s *WriteStep) Do(ctx context.Context, report *model.SourceReport) error {
	if err := s.writer.Write(ctx, report.TabName, report.Table); err != nil {
		return fmt.Errorf("failed to write tab %s to %s: %w", report.TabName, s.writer.Name(), err)
	}
	report.Written = true

	s.logger.Info("wrote tab",
		"tab", report.TabName,
		"rows", report.Table.RowCount(),
		"destination", s.writer.Name(),
	)
	return nil
}

// NewScrapePipelineFactory returns a factory producing the standard
// per-source pipeline: fetch, scan, format, write. The steps are shared by
// every pipeline the factory creates, so the scanner's deduplication scope
// spans the whole run.
func NewScrapePipelineFactory(
	fetcher *crawler.Fetcher,
	scanner *extract.Scanner,
	writer sheet.Writer,
	logger *slog.Logger,
) func() *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	steps := []Step{
		NewFetchStep(fetcher, WithFetchLogger(logger)),
		NewScanStep(scanner, WithScanLogger(logger)),
		NewFormatStep(),
		NewWriteStep(writer, WithWriteLogger(logger)),
	}

	return func() *Pipeline {
		p := New(WithLogger(logger))
		p.AddSteps(steps...)
		return p
	}
}
