package sheet

import "github.com/nao1215/voiceline/internal/model"

// FormatColumns builds a table from two parallel columns.
// The header row comes first; the table then has one row per index up to
// the longer column, with "" filling the shorter one.
func FormatColumns(audioLinks, quotes []string) model.SheetTable {
	n := max(len(audioLinks), len(quotes))

	table := make(model.SheetTable, 0, n+1)
	table = append(table, model.Header())
	for i := range n {
		table = append(table, []string{cell(audioLinks, i), cell(quotes, i)})
	}
	return table
}

// FormatTable builds the table for one page result.
func FormatTable(result model.PageResult) model.SheetTable {
	return FormatColumns(result.AudioLinks(), result.Quotes())
}

func cell(column []string, i int) string {
	if i < len(column) {
		return column[i]
	}
	return ""
}

// validateTable checks the shape every writer relies on.
func validateTable(table model.SheetTable) error {
	if table.RowCount() == 0 {
		return ErrInvalidTable
	}
	for _, row := range table {
		if len(row) != model.TableColumns {
			return ErrInvalidTable
		}
	}
	return nil
}
