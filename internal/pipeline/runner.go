package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/voiceline/internal/model"
	"github.com/nao1215/voiceline/internal/sheet"
)

// Runner processes source addresses one at a time.
// Sources are never processed concurrently: the run shares one
// deduplication scope and one destination handle across all of them.
type Runner struct {
	// pipelineFactory creates the pipeline for each source.
	pipelineFactory func() *Pipeline

	// destination and output describe the writer in the run report.
	destination string
	output      string

	// continueOnError records failed sources and moves on instead of
	// stopping the run.
	continueOnError bool

	// callback is invoked after every source, in order.
	callback func(report *model.SourceReport, index int)

	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets a custom logger for run-level logging.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithContinueOnError makes the runner record a failed source and carry on
// with the next one. By default the first failure aborts the run.
func WithContinueOnError(continueOnError bool) RunnerOption {
	return func(r *Runner) {
		r.continueOnError = continueOnError
	}
}

// WithDestination names the destination in the run report.
func WithDestination(destination, output string) RunnerOption {
	return func(r *Runner) {
		r.destination = destination
		r.output = output
	}
}

// WithCallback sets a function called after each source completes,
// successfully or not.
func WithCallback(callback func(report *model.SourceReport, index int)) RunnerOption {
	return func(r *Runner) {
		r.callback = callback
	}
}

// NewRunner creates a Runner. pipelineFactory is called once per source.
func NewRunner(pipelineFactory func() *Pipeline, opts ...RunnerOption) *Runner {
	r := &Runner{
		pipelineFactory: pipelineFactory,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// Run processes sources in order and returns the run report.
//
// The tab name of each source is derived before anything is fetched; an
// address it cannot be derived from fails that source. On the first failed
// source the run stops and the error is returned, unless continue-on-error
// is set, in which case failures are only recorded. Cancellation always
// stops the run. The returned report is complete up to the point of return.
func (r *Runner) Run(ctx context.Context, sources []string) (*model.RunReport, error) {
	run := model.NewRunReport(r.destination, r.output)
	r.logger.Info("starting run",
		"run", run.ID,
		"sources", len(sources),
		"destination", r.destination,
	)

	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return r.finish(run, true), err
		}

		report := model.NewSourceReport(source)
		err := r.process(ctx, report)
		report.FinishedAt = time.Now()
		run.AddSource(report)

		if r.callback != nil {
			r.callback(report, i)
		}

		if err == nil {
			continue
		}

		if ctx.Err() != nil || !r.continueOnError {
			return r.finish(run, i < len(sources)-1 || ctx.Err() != nil), err
		}
		r.logger.Warn("source failed, continuing",
			"url", source,
			"error", err,
		)
	}

	return r.finish(run, false), nil
}

// process runs one source through a fresh pipeline.
func (r *Runner) process(ctx context.Context, report *model.SourceReport) error {
	tab, err := sheet.TabName(report.URL)
	if err != nil {
		report.SetError(err)
		return err
	}
	report.TabName = tab

	return r.pipelineFactory().Execute(ctx, report)
}

func (r *Runner) finish(run *model.RunReport, aborted bool) *model.RunReport {
	run.FinishedAt = time.Now()
	run.Aborted = aborted

	totals := run.Totals()
	r.logger.Info("run complete",
		"run", run.ID,
		"sources", len(run.Sources),
		"failed", run.FailedCount(),
		"kept", totals.Kept,
		"duplicates", totals.Duplicates,
		"elapsed", run.Duration(),
		"aborted", aborted,
	)
	return run
}
