package sheet

import "errors"

var (
	// ErrInvalidSourceAddress is returned when a tab name cannot be derived
	// from a source address.
	ErrInvalidSourceAddress = errors.New("source address needs at least two path segments")

	// ErrInvalidTable is returned when a table has no header row or a row
	// that is not two columns wide.
	ErrInvalidTable = errors.New("table must have a header row and exactly two columns")

	// ErrMissingCredentials is returned when a GoogleWriter is created
	// without any way to authenticate.
	ErrMissingCredentials = errors.New("google credentials are required")

	// ErrMissingSpreadsheetName is returned when the destination spreadsheet name is empty.
	ErrMissingSpreadsheetName = errors.New("spreadsheet name is required")

	// ErrMissingWorkbookPath is returned when a WorkbookWriter has no file path.
	ErrMissingWorkbookPath = errors.New("workbook path is required")
)
