// Package model defines the core data structures used throughout voiceline.
//
// This package contains the following main types:
//   - QuotePair: One extracted (audio link, quote text) entry
//   - PageResult: The ordered pairs accepted from one source page
//   - SheetTable: The two-column table written to a spreadsheet tab
//   - Page: A fetched source page with its raw body
//   - SourceReport: Everything recorded while processing one source address
//   - RunReport: The summary of a whole run across all source addresses
//
// The models are serializable to JSON for report output and database storage.
package model
