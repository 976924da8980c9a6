// Package sheet turns page results into two-column tables and persists them
// to named tabs of a spreadsheet.
//
// FormatTable and FormatColumns build the SheetTable (header row first).
// TabName derives the destination tab from a source address. A Writer stores
// a table in a tab, replacing whatever the tab held before:
//
//   - GoogleWriter writes to a Google Sheets spreadsheet found (or created)
//     by name through the Drive API.
//   - WorkbookWriter writes to a local .xlsx workbook.
//   - DiscardWriter drops everything; it backs dry runs.
package sheet
