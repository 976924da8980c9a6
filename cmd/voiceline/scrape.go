package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nao1215/voiceline/internal/config"
	"github.com/nao1215/voiceline/internal/crawler"
	"github.com/nao1215/voiceline/internal/database"
	"github.com/nao1215/voiceline/internal/extract"
	"github.com/nao1215/voiceline/internal/model"
	"github.com/nao1215/voiceline/internal/pipeline"
	"github.com/nao1215/voiceline/internal/report"
	"github.com/nao1215/voiceline/internal/sheet"
)

const (
	// defaultEnvFile is loaded before reading credentials from the environment.
	defaultEnvFile = ".env"

	// lockFileName guards against two runs writing the same destination.
	lockFileName = "voiceline.lock"

	// outputDryRun is the output kind recorded for --dry-run runs.
	outputDryRun = "dry-run"
)

// errAlreadyRunning is returned when another run holds the lock.
var errAlreadyRunning = errors.New("another voiceline run is in progress")

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Scrape quote pages and write one tab per agent",
		Long: `Scrape fetches each quote page in order, extracts every list item that
carries an audio clip, and writes the (audio_links, quotes) table to the tab
named after the agent in the page address.

Sources are taken from the arguments, then from the sources list of the
config file, and otherwise default to every agent quote page on
valorant.fandom.com. A quote is written only for its first occurrence in
the run.

Google credentials are read from --credentials or from the
VOICELINE_SERVICE_ACCOUNT environment variable, which may be set in a .env
file. They are never written to logs or reports.

Examples:
  # Scrape every default agent page into the "valo_wiki" spreadsheet
  voiceline scrape

  # Scrape two pages into a local workbook
  voiceline scrape -o xlsx -w voicelines.xlsx \
    https://valorant.fandom.com/wiki/Jett/Quotes \
    https://valorant.fandom.com/wiki/Sage/Quotes

  # See what would be written without touching any spreadsheet
  voiceline scrape --dry-run --markdown

  # Record failures and continue with the next page
  voiceline scrape --keep-going`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	// Destination flags
	cmd.Flags().StringP("output", "o", config.OutputGoogle,
		"Destination kind: google or xlsx")
	cmd.Flags().StringP("spreadsheet", "s", config.DefaultSpreadsheetName,
		"Google spreadsheet title to write to (created when missing)")
	cmd.Flags().StringP("workbook", "w", "",
		"Workbook path for --output xlsx")
	cmd.Flags().String("credentials", "",
		"Service account JSON key file (default: $"+config.CredentialsEnvVar+")")
	cmd.Flags().String("env-file", defaultEnvFile,
		"Environment file loaded before reading credentials")
	cmd.Flags().BoolP("dry-run", "n", false,
		"Scrape and report without writing any spreadsheet")

	// Fetch flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each page request")
	cmd.Flags().String("proxy", "",
		"Proxy for page requests (socks5://host:port or http://host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header for page requests")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest page body accepted in bytes; larger pages fail the source")

	// Run behavior flags
	cmd.Flags().BoolP("keep-going", "k", false,
		"Record a failed page and continue instead of stopping the run")
	cmd.Flags().Bool("no-history", false,
		"Do not record the run in the history database")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .voiceline in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return err
	}
	if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScrape(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// loadEnvFile loads KEY=VALUE pairs into the environment without
// overriding variables that are already set. A missing default file is
// not an error; a missing file named explicitly is.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// buildConfig creates a Config from cobra command flags and the config file.
// Flags set on the command line win over config file values.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Spreadsheet, err = cmd.Flags().GetString("spreadsheet"); err != nil {
		return nil, err
	}
	if cfg.WorkbookPath, err = cmd.Flags().GetString("workbook"); err != nil {
		return nil, err
	}
	if cfg.CredentialsFile, err = cmd.Flags().GetString("credentials"); err != nil {
		return nil, err
	}
	if cfg.DryRun, err = cmd.Flags().GetBool("dry-run"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.KeepGoing, err = cmd.Flags().GetBool("keep-going"); err != nil {
		return nil, err
	}
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("report-file"); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	cfg.Sources = args

	// An explicitly named config file must exist; the default lookup is optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg, cmd.Flags().Changed); err != nil {
			return nil, err
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = config.DefaultSources()
	}

	cfg.DBDir = config.XDGDataDir()

	return cfg, nil
}

// runScrape executes one run over cfg.Sources.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	lock, err := acquireRunLock(cfg.DBDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", "error", err)
		}
	}()

	writer, err := newSheetWriter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close destination", "destination", writer.Name(), "error", err)
		}
	}()

	client, err := crawler.NewHTTPClient(cfg.ProxyAddress, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	fetcher := crawler.NewFetcher(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
	)

	// One scanner for the whole run so duplicates are detected across pages.
	scanner := extract.NewScanner(
		extract.NewExtractor(extract.NewSeenQuotes()),
		extract.WithScannerLogger(logger),
	)

	destination, output := describeDestination(cfg)
	progress := newProgress(stderr, len(cfg.Sources))

	runner := pipeline.NewRunner(
		pipeline.NewScrapePipelineFactory(fetcher, scanner, writer, logger),
		pipeline.WithRunnerLogger(logger),
		pipeline.WithContinueOnError(cfg.KeepGoing),
		pipeline.WithDestination(destination, output),
		pipeline.WithCallback(progress.report),
	)

	logger.Info("starting scrape",
		"sources", len(cfg.Sources),
		"destination", destination,
		"output", output,
		"keepGoing", cfg.KeepGoing,
	)

	run, runErr := runner.Run(ctx, cfg.Sources)

	if cfg.SaveToDB {
		// A cancelled run is still recorded.
		if err := saveRun(context.WithoutCancel(ctx), cfg.DBDir, run, logger); err != nil {
			logger.Error("failed to record run", "run", run.ID, "error", err)
		}
	}

	if err := outputReport(cfg, stdout, func(w report.Writer) error {
		_, err := w.Write(run)
		return err
	}); err != nil {
		logger.Error("report failed", "error", err)
		if runErr == nil {
			return err
		}
	}

	return runErr
}

// acquireRunLock takes the per-user run lock in dir.
func acquireRunLock(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock file %s)", errAlreadyRunning, lock.Path())
	}
	return lock, nil
}

// newSheetWriter opens the destination selected by cfg.
func newSheetWriter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheet.Writer, error) {
	if cfg.DryRun {
		return sheet.NewDiscardWriter(logger), nil
	}

	switch cfg.Output {
	case config.OutputWorkbook:
		w, err := sheet.NewWorkbookWriter(cfg.WorkbookPath, sheet.WithWorkbookLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		return w, nil
	default:
		credentials, err := cfg.ServiceAccountJSON()
		if err != nil {
			return nil, err
		}
		w, err := sheet.NewGoogleWriter(ctx, cfg.Spreadsheet,
			sheet.WithCredentialsJSON(credentials),
			sheet.WithGoogleLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
		return w, nil
	}
}

// describeDestination returns the destination name and output kind
// recorded in the run report.
func describeDestination(cfg *config.Config) (string, string) {
	destination := cfg.Spreadsheet
	if cfg.Output == config.OutputWorkbook {
		destination = cfg.WorkbookPath
	}
	if cfg.DryRun {
		return destination, outputDryRun
	}
	return destination, cfg.Output
}

// saveRun records the run in the history database.
func saveRun(ctx context.Context, dbDir string, run *model.RunReport, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveRun(ctx, run); err != nil {
		return err
	}

	logger.Info("run recorded", "run", run.ID, "database", db.Path())
	return nil
}

// outputReport opens the report destination, picks the writer matching the
// requested format, and hands it to write.
func outputReport(cfg *config.Config, stdout io.Writer, write func(report.Writer) error) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list source addresses and error messages; keep them owner-only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	return write(newReportWriter(cfg, output))
}

// newReportWriter returns the report writer for the requested format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
