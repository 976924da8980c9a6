package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/voiceline/internal/config"
	"github.com/nao1215/voiceline/internal/database"
	"github.com/nao1215/voiceline/internal/report"
)

// errNotEnoughRuns is returned when a diff is requested with fewer than two runs.
var errNotEnoughRuns = errors.New("at least two recorded runs are needed for a diff")

// historyOptions holds the parsed history command flags.
type historyOptions struct {
	limit      int
	diff       bool
	runID      string
	againstID  string
	json       bool
	markdown   bool
	reportFile string
}

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs and compare their quotes",
		Long: `History reads the runs recorded by 'voiceline scrape'.

Without flags it lists the most recent runs. With --run it shows the sources
of one run. With --diff it compares the quotes of two runs tab by tab and
reports the quotes that were added or removed and the pages whose content
changed.

Run IDs may be abbreviated to any unique prefix.

Examples:
  # List the last 20 runs
  voiceline history

  # Show every source of one run
  voiceline history --run 3f2a

  # Compare the latest run with the one before it
  voiceline history --diff

  # Compare two specific runs and save the result as Markdown
  voiceline history --diff --run 3f2a --against 91bc --markdown -r diff.md`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 20,
		"Number of runs to list (0 lists every run)")
	cmd.Flags().BoolP("diff", "d", false,
		"Compare the quotes of two runs")
	cmd.Flags().String("run", "",
		"Run to show, or the newer run of a diff (default: latest)")
	cmd.Flags().String("against", "",
		"Older run of a diff (default: the run before --run)")

	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "r", "",
		"Write output to specified file path (creates directories if needed)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	var opts historyOptions
	var err error

	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.diff, err = cmd.Flags().GetBool("diff"); err != nil {
		return err
	}
	if opts.runID, err = cmd.Flags().GetString("run"); err != nil {
		return err
	}
	if opts.againstID, err = cmd.Flags().GetString("against"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.reportFile, err = cmd.Flags().GetString("report-file"); err != nil {
		return err
	}

	setupLogger(cmd)

	return runHistory(cmd.Context(), config.XDGDataDir(), opts, cmd.OutOrStdout())
}

// runHistory executes the history command against the database in dbDir.
func runHistory(ctx context.Context, dbDir string, opts historyOptions, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}
	if opts.againstID != "" && !opts.diff {
		return errors.New("--against requires --diff")
	}

	dbOpts := database.DefaultOptions()
	dbOpts.CreateIfNotExists = false
	db, err := database.Open(dbDir, dbOpts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out, closeOut, err := openOutput(opts.reportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	switch {
	case opts.diff:
		return showDiff(ctx, db, opts, out)
	case opts.runID != "":
		return showRun(ctx, db, opts, out)
	default:
		return listRuns(ctx, db, opts, out)
	}
}

// openOutput returns stdout, or the report file when path is set.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// listRuns prints the most recent runs.
func listRuns(ctx context.Context, db *database.Store, opts historyOptions, out io.Writer) error {
	runs, err := db.ListRuns(ctx, opts.limit)
	if err != nil {
		return err
	}

	if opts.json {
		if runs == nil {
			runs = []database.RunRecord{}
		}
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		fmt.Fprintln(out, "\nUse 'voiceline scrape' to record a run.")
		return nil
	}

	headers := []string{"Run", "Started", "Destination", "Output", "Sources", "Failed", "Kept", "Duplicates", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Destination,
			run.Output,
			strconv.Itoa(run.Sources),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Kept),
			strconv.Itoa(run.Duplicates),
			recordStatus(run),
		})
	}

	return writeTable(out, opts, headers, rows, aligns)
}

// showRun prints the sources of one run.
func showRun(ctx context.Context, db *database.Store, opts historyOptions, out io.Writer) error {
	id, err := db.ResolveRunID(ctx, opts.runID)
	if err != nil {
		return err
	}
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %s", database.ErrRunNotFound, id)
	}
	sources, err := db.GetRunSources(ctx, id)
	if err != nil {
		return err
	}

	if opts.json {
		if sources == nil {
			sources = []database.SourceRecord{}
		}
		return writeJSON(out, struct {
			Run     *database.RunRecord     `json:"run"`
			Sources []database.SourceRecord `json:"sources"`
		}{run, sources})
	}

	if opts.markdown {
		fmt.Fprintf(out, "# Run `%s`\n\n", run.ID)
	} else {
		fmt.Fprintf(out, "Run %s\n", run.ID)
	}
	fmt.Fprintf(out, "Destination: %s (%s)\n", run.Destination, run.Output)
	fmt.Fprintf(out, "Started:     %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(out, "Duration:    %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Status:      %s\n\n", recordStatus(*run))

	headers := []string{"Tab", "HTTP", "Items", "Kept", "Missing audio", "Empty", "Duplicates", "Written", "Error"}
	aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(sources))
	for _, src := range sources {
		written := "no"
		if src.Written {
			written = "yes"
		}
		tab := src.TabName
		if tab == "" {
			tab = src.URL
		}
		status := "-"
		if src.StatusCode != 0 {
			status = strconv.Itoa(src.StatusCode)
		}
		rows = append(rows, []string{
			tab,
			status,
			strconv.Itoa(src.Stats.Items),
			strconv.Itoa(src.Stats.Kept),
			strconv.Itoa(src.Stats.MissingAudio),
			strconv.Itoa(src.Stats.EmptyQuote),
			strconv.Itoa(src.Stats.Duplicates),
			written,
			src.Error,
		})
	}

	return writeTable(out, opts, headers, rows, aligns)
}

// showDiff compares two runs and writes the result with a report writer.
func showDiff(ctx context.Context, db *database.Store, opts historyOptions, out io.Writer) error {
	from, to, err := diffTargets(ctx, db, opts)
	if err != nil {
		return err
	}

	diff, err := db.DiffRuns(ctx, from, to)
	if err != nil {
		return err
	}

	var w report.Writer
	switch {
	case opts.json:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}

	_, err = w.WriteDiff(diff)
	return err
}

// diffTargets resolves the older and newer run of a diff.
func diffTargets(ctx context.Context, db *database.Store, opts historyOptions) (from, to string, err error) {
	if opts.runID != "" {
		if to, err = db.ResolveRunID(ctx, opts.runID); err != nil {
			return "", "", err
		}
	}
	if opts.againstID != "" {
		if from, err = db.ResolveRunID(ctx, opts.againstID); err != nil {
			return "", "", err
		}
	}
	if from != "" && to != "" {
		return from, to, nil
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		return "", "", err
	}

	if to == "" {
		if len(runs) == 0 {
			return "", "", errNotEnoughRuns
		}
		to = runs[0].ID
	}
	if from == "" {
		from, err = previousRun(runs, to)
		if err != nil {
			return "", "", err
		}
	}

	return from, to, nil
}

// previousRun returns the run recorded just before id in runs, which are
// ordered newest first.
func previousRun(runs []database.RunRecord, id string) (string, error) {
	for i, run := range runs {
		if run.ID != id {
			continue
		}
		if i+1 < len(runs) {
			return runs[i+1].ID, nil
		}
		break
	}
	return "", errNotEnoughRuns
}

func recordStatus(run database.RunRecord) string {
	switch {
	case run.Aborted:
		return "aborted"
	case run.Failed > 0:
		return "failures"
	default:
		return "complete"
	}
}

// shortID abbreviates a run ID for tables.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func writeTable(out io.Writer, opts historyOptions, headers []string, rows [][]string, aligns []columnAlignment) error {
	var rendered string
	if opts.markdown {
		rendered = renderMarkdownTable(headers, rows, aligns)
	} else {
		rendered = renderTable(headers, rows, aligns)
	}
	_, err := fmt.Fprintln(out, rendered)
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
