// Package pipeline runs source addresses through the scrape steps.
//
// A Pipeline executes Steps in order for one source and records the outcome
// on a model.SourceReport. The standard steps are FetchStep, ScanStep,
// FormatStep and WriteStep. A Runner feeds the sources through fresh
// pipelines one at a time, builds the model.RunReport, and decides whether a
// failed source aborts the run.
package pipeline
