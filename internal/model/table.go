package model

// Column names of the header row written to every tab.
const (
	HeaderAudioLinks = "audio_links"
	HeaderQuotes     = "quotes"
)

// TableColumns is the fixed width of every SheetTable.
const TableColumns = 2

// Header returns a fresh copy of the fixed header row.
func Header() []string {
	return []string{HeaderAudioLinks, HeaderQuotes}
}

// SheetTable is the rectangular table persisted to one tab.
// Row 0 is always the header; each later row holds exactly two cells.
type SheetTable [][]string

// RowCount returns the number of rows including the header.
func (t SheetTable) RowCount() int {
	return len(t)
}

// DataRows returns the rows after the header.
// It returns nil for an empty table.
func (t SheetTable) DataRows() [][]string {
	if len(t) <= 1 {
		return nil
	}
	return t[1:]
}

// Values converts the table into the [][]interface{} shape expected by
// spreadsheet APIs.
func (t SheetTable) Values() [][]interface{} {
	values := make([][]interface{}, len(t))
	for i, row := range t {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	return values
}
