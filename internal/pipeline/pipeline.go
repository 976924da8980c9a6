package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/voiceline/internal/model"
)

// Step is one stage of processing a source. Steps communicate only through
// the SourceReport: each reads what earlier steps recorded and adds its own
// outcome.
type Step interface {
	// Do runs the step. A returned error stops the pipeline for this source.
	Do(ctx context.Context, report *model.SourceReport) error

	// Name identifies the step in logs, errors and PerformedSteps.
	Name() string
}

// StepError reports which step stopped a pipeline.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline runs an ordered list of steps against one source report.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}

// Execute runs the steps in order and stops at the first failure.
//
// Cancellation is checked before each step and returned unwrapped; a step
// already running must honor ctx itself. A failing step's error is recorded
// on report as-is and returned wrapped in a *StepError. Each completed step
// is appended to report.PerformedSteps.
func (p *Pipeline) Execute(ctx context.Context, report *model.SourceReport) error {
	for _, step := range p.steps {
		name := step.Name()

		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", name, "url", report.URL, "reason", err)
			report.SetError(err)
			return err
		}

		start := time.Now()
		err := step.Do(ctx, report)
		elapsed := time.Since(start)

		if err != nil {
			p.logger.Error("step failed",
				"step", name,
				"url", report.URL,
				"elapsed", elapsed,
				"error", err,
			)
			report.SetError(err)
			return &StepError{Step: name, Err: err}
		}

		p.logger.Debug("step done", "step", name, "url", report.URL, "elapsed", elapsed)
		report.PerformedSteps = append(report.PerformedSteps, name)
	}

	return nil
}
