package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "voiceline"

	// DefaultSpreadsheetName is the top-level spreadsheet (or workbook) name.
	DefaultSpreadsheetName = "valo_wiki"

	// DefaultTimeout bounds each page fetch. Wiki pages are large but served
	// from a CDN, so 30 seconds is generous.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies voiceline in wiki access logs.
	DefaultUserAgent = "voiceline/1.0 (+https://github.com/nao1215/voiceline)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// CredentialsEnvVar holds the Google service-account key as JSON.
	CredentialsEnvVar = "VOICELINE_SERVICE_ACCOUNT"
)

// Output kinds.
const (
	// OutputGoogle writes tabs to a Google Sheets spreadsheet.
	OutputGoogle = "google"

	// OutputWorkbook writes tabs to a local .xlsx workbook.
	OutputWorkbook = "xlsx"
)

// Config holds all configuration options for a scrape run.
// It is populated from CLI flags, then from the config file for any flag the
// user did not set, and passed through the application explicitly.
type Config struct {
	// Sources is the ordered list of quote page addresses to process.
	Sources []string

	// Spreadsheet is the name of the destination spreadsheet.
	Spreadsheet string

	// Output selects the destination kind: OutputGoogle or OutputWorkbook.
	Output string

	// WorkbookPath is the .xlsx file written when Output is OutputWorkbook.
	WorkbookPath string

	// CredentialsFile is a path to a service-account key file.
	// When empty, the key is read from CredentialsEnvVar.
	CredentialsFile string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// ProxyAddress is an optional socks5:// or http(s):// proxy URL.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// KeepGoing records a failed source and continues with the next one
	// instead of aborting the run.
	KeepGoing bool

	// DryRun scrapes and formats but writes nothing to the destination.
	DryRun bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .voiceline in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the history database.
	// Defaults to XDG data directory (~/.local/share/voiceline on Linux).
	DBDir string

	// SaveToDB records the run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Spreadsheet: DefaultSpreadsheetName,
		Output:      OutputGoogle,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for voiceline.
// On Linux: ~/.local/share/voiceline
// On macOS: ~/Library/Application Support/voiceline
// On Windows: %LOCALAPPDATA%\voiceline
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for voiceline.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSource
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	switch c.Output {
	case OutputGoogle:
		if c.Spreadsheet == "" {
			return ErrEmptySpreadsheetName
		}
	case OutputWorkbook:
		if c.WorkbookPath == "" {
			return ErrMissingWorkbookPath
		}
	default:
		return ErrUnknownOutput
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
