package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrNoSource is returned when there is no source page address to scrape.
	ErrNoSource = errors.New("no source specified: provide page URLs or a sources list in the config file")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownOutput is returned when the destination kind is not supported.
	ErrUnknownOutput = errors.New("unknown output: must be google or xlsx")

	// ErrMissingWorkbookPath is returned when xlsx output has no workbook path.
	ErrMissingWorkbookPath = errors.New("missing workbook path: --workbook is required with --output xlsx")

	// ErrEmptySpreadsheetName is returned when the destination spreadsheet name is empty.
	ErrEmptySpreadsheetName = errors.New("empty spreadsheet name")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoCredentials is returned when no service-account key is available.
	ErrNoCredentials = errors.New("no google credentials: set " + CredentialsEnvVar + " or use --credentials")
)
