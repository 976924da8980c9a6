package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/voiceline/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "voiceline.db"

var (
	// ErrRunNotFound is returned when no stored run matches an ID or prefix.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when an ID prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run ID prefix matches more than one run")
)

// Store is the SQLite-backed run history.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a scrape first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	-- One row per scrape run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		destination TEXT NOT NULL,
		output TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		aborted INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Per-source outcome within a run
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		tab_name TEXT,
		status_code INTEGER,
		page_hash TEXT,
		items INTEGER NOT NULL DEFAULT 0,
		kept INTEGER NOT NULL DEFAULT 0,
		missing_audio INTEGER NOT NULL DEFAULT 0,
		empty_quote INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		written INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sources_run ON sources(run_id);

	-- Accepted pairs, in page order
	CREATE TABLE IF NOT EXISTS quotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		tab_name TEXT NOT NULL,
		position INTEGER NOT NULL,
		audio_link TEXT NOT NULL,
		quote TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_quotes_run_tab ON quotes(run_id, tab_name);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a finished run with its sources and accepted pairs.
// The whole run is written in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *model.RunReport) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, destination, output, started_at, finished_at, aborted)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Destination,
		run.Output,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		boolToInt(run.Aborted),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, src := range run.Sources {
		var statusCode int
		var pageHash string
		if src.Page != nil {
			statusCode = src.Page.StatusCode
			pageHash = src.Page.Hash
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO sources (run_id, position, url, tab_name, status_code, page_hash,
			items, kept, missing_audio, empty_quote, duplicates, written, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			src.URL,
			src.TabName,
			statusCode,
			pageHash,
			src.Stats.Items,
			src.Stats.Kept,
			src.Stats.MissingAudio,
			src.Stats.EmptyQuote,
			src.Stats.Duplicates,
			boolToInt(src.Written),
			src.ErrorMessage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src.URL, err)
		}

		for pos, pair := range src.Result {
			_, err = tx.ExecContext(ctx, `
			INSERT INTO quotes (run_id, tab_name, position, audio_link, quote)
			VALUES (?, ?, ?, ?, ?)
			`, run.ID, src.TabName, pos, pair.AudioLink, pair.Quote)
			if err != nil {
				return fmt.Errorf("failed to insert quote: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunRecord summarizes a stored run without loading its quotes.
type RunRecord struct {
	// ID is the run identifier.
	ID string `json:"id"`

	// Destination is the spreadsheet title or workbook path.
	Destination string `json:"destination"`

	// Output is the writer kind.
	Output string `json:"output"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended.
	FinishedAt time.Time `json:"finished_at"`

	// Aborted reports whether the run stopped early.
	Aborted bool `json:"aborted"`

	// Sources is the number of processed sources.
	Sources int `json:"sources"`

	// Failed is the number of sources that ended with an error.
	Failed int `json:"failed"`

	// Kept is the total number of accepted pairs.
	Kept int `json:"kept"`

	// Duplicates is the total number of items dropped as duplicates.
	Duplicates int `json:"duplicates"`
}

const runRecordQuery = `
	SELECT r.id, r.destination, r.output, r.started_at, COALESCE(r.finished_at, ''), r.aborted,
		COUNT(s.id),
		COALESCE(SUM(CASE WHEN s.error IS NOT NULL AND s.error != '' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(s.kept), 0),
		COALESCE(SUM(s.duplicates), 0)
	FROM runs r
	LEFT JOIN sources s ON s.run_id = r.id
	`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRecord(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var startedAt, finishedAt string
	var aborted int

	if err := row.Scan(
		&rec.ID,
		&rec.Destination,
		&rec.Output,
		&startedAt,
		&finishedAt,
		&aborted,
		&rec.Sources,
		&rec.Failed,
		&rec.Kept,
		&rec.Duplicates,
	); err != nil {
		return RunRecord{}, err
	}

	rec.StartedAt = parseTimestamp(startedAt)
	rec.FinishedAt = parseTimestamp(finishedAt)
	rec.Aborted = aborted != 0
	return rec, nil
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := runRecordQuery + `
	GROUP BY r.id
	ORDER BY r.started_at DESC
	`
	args := make([]interface{}, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRunRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or nil if there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := runRecordQuery + `
	WHERE r.id = ?
	GROUP BY r.id
	`

	rec, err := scanRunRecord(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &rec, nil
}

// ResolveRunID expands a unique ID prefix to the full run ID.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run ID: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

// LatestRunIDs returns the IDs of the n most recent runs, newest first.
func (s *Store) LatestRunIDs(ctx context.Context, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list run IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// SourceRecord is a stored per-source outcome.
type SourceRecord struct {
	URL        string          `json:"url"`
	TabName    string          `json:"tab_name"`
	StatusCode int             `json:"status_code"`
	PageHash   string          `json:"page_hash"`
	Stats      model.ScanStats `json:"stats"`
	Written    bool            `json:"written"`
	Error      string          `json:"error,omitempty"`
}

// GetRunSources returns the sources of a run in processing order.
func (s *Store) GetRunSources(ctx context.Context, runID string) ([]SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT url, COALESCE(tab_name, ''), COALESCE(status_code, 0), COALESCE(page_hash, ''),
		items, kept, missing_audio, empty_quote, duplicates, written, COALESCE(error, '')
	FROM sources
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceRecord
	for rows.Next() {
		var rec SourceRecord
		var written int
		if err := rows.Scan(
			&rec.URL,
			&rec.TabName,
			&rec.StatusCode,
			&rec.PageHash,
			&rec.Stats.Items,
			&rec.Stats.Kept,
			&rec.Stats.MissingAudio,
			&rec.Stats.EmptyQuote,
			&rec.Stats.Duplicates,
			&written,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		rec.Written = written != 0
		sources = append(sources, rec)
	}

	return sources, rows.Err()
}

// GetRunQuotes returns the accepted pairs of a run grouped by tab, each in
// page order.
func (s *Store) GetRunQuotes(ctx context.Context, runID string) (map[string]model.PageResult, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT tab_name, audio_link, quote
	FROM quotes
	WHERE run_id = ?
	ORDER BY tab_name, position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run quotes: %w", err)
	}
	defer rows.Close()

	quotes := make(map[string]model.PageResult)
	for rows.Next() {
		var tab string
		var pair model.QuotePair
		if err := rows.Scan(&tab, &pair.AudioLink, &pair.Quote); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes[tab] = append(quotes[tab], pair)
	}

	return quotes, rows.Err()
}

// TabDiff lists how one tab's quotes changed between two runs.
type TabDiff struct {
	// Tab is the tab name.
	Tab string `json:"tab"`

	// Added holds pairs whose quote appears only in the newer run.
	Added []model.QuotePair `json:"added"`

	// Removed holds pairs whose quote appears only in the older run.
	Removed []model.QuotePair `json:"removed"`

	// PageChanged reports whether the source page content hash differs.
	PageChanged bool `json:"page_changed"`
}

// Changed reports whether the tab has any added or removed quotes.
func (d TabDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// RunDiff is the comparison of two stored runs.
type RunDiff struct {
	// From is the older run ID.
	From string `json:"from"`

	// To is the newer run ID.
	To string `json:"to"`

	// Tabs lists every tab present in either run, sorted by name.
	Tabs []TabDiff `json:"tabs"`
}

// DiffRuns compares the quotes of run from against run to.
func (s *Store) DiffRuns(ctx context.Context, from, to string) (*RunDiff, error) {
	for _, id := range []string{from, to} {
		run, err := s.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
	}

	oldQuotes, err := s.GetRunQuotes(ctx, from)
	if err != nil {
		return nil, err
	}
	newQuotes, err := s.GetRunQuotes(ctx, to)
	if err != nil {
		return nil, err
	}
	oldSources, err := s.GetRunSources(ctx, from)
	if err != nil {
		return nil, err
	}
	newSources, err := s.GetRunSources(ctx, to)
	if err != nil {
		return nil, err
	}

	diff := &RunDiff{
		From: from,
		To:   to,
		Tabs: DiffQuotes(oldQuotes, newQuotes),
	}

	oldHashes := pageHashes(oldSources)
	newHashes := pageHashes(newSources)
	for i := range diff.Tabs {
		tab := diff.Tabs[i].Tab
		diff.Tabs[i].PageChanged = oldHashes[tab] != newHashes[tab]
	}

	return diff, nil
}

// DiffQuotes compares two per-tab quote sets by quote text.
// Pairs keep their page order within Added and Removed.
func DiffQuotes(oldQuotes, newQuotes map[string]model.PageResult) []TabDiff {
	tabs := make(map[string]struct{}, len(oldQuotes)+len(newQuotes))
	for tab := range oldQuotes {
		tabs[tab] = struct{}{}
	}
	for tab := range newQuotes {
		tabs[tab] = struct{}{}
	}

	names := make([]string, 0, len(tabs))
	for tab := range tabs {
		names = append(names, tab)
	}
	sort.Strings(names)

	diffs := make([]TabDiff, 0, len(names))
	for _, tab := range names {
		diffs = append(diffs, TabDiff{
			Tab:     tab,
			Added:   missingFrom(newQuotes[tab], oldQuotes[tab]),
			Removed: missingFrom(oldQuotes[tab], newQuotes[tab]),
		})
	}
	return diffs
}

// missingFrom returns the pairs of a whose quote does not occur in b.
func missingFrom(a, b model.PageResult) []model.QuotePair {
	present := make(map[string]struct{}, len(b))
	for _, pair := range b {
		present[pair.Quote] = struct{}{}
	}

	out := make([]model.QuotePair, 0)
	for _, pair := range a {
		if _, ok := present[pair.Quote]; !ok {
			out = append(out, pair)
		}
	}
	return out
}

func pageHashes(sources []SourceRecord) map[string]string {
	hashes := make(map[string]string, len(sources))
	for _, src := range sources {
		if src.TabName != "" {
			hashes[src.TabName] = src.PageHash
		}
	}
	return hashes
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatTimestamp renders t in UTC, or "" for the zero time.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampLayout is fixed width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
