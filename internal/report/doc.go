// Package report renders run summaries and run comparisons.
//
// Three formats are available:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter / FullJSONWriter: structured output for other tools
//   - MarkdownWriter: tables and alerts for sharing
//
// Every writer implements Writer, so the CLI picks one from its flags and
// hands it either a finished run or a diff between two stored runs.
package report
