package sheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/nao1215/voiceline/internal/model"
)

// DefaultSpreadsheetName is the spreadsheet every run writes to unless
// configured otherwise.
const DefaultSpreadsheetName = "valo_wiki"

// Grid size of newly added tabs.
const (
	DefaultTabRows    = 1000
	DefaultTabColumns = model.TableColumns
)

const (
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	rawInput            = "RAW"
)

// GoogleWriter writes tables to tabs of a Google Sheets spreadsheet.
//
// The spreadsheet is looked up by name through the Drive API on the first
// write and created when absent; its ID is reused for the rest of the run.
type GoogleWriter struct {
	sheets *sheets.Service
	drive  *drive.Service
	logger *slog.Logger

	// title is the spreadsheet name.
	title string

	// spreadsheetID is resolved lazily by the first Write.
	spreadsheetID string

	// tabs caches the tabs known to exist in the spreadsheet.
	tabs map[string]tabGrid
}

// tabGrid is the identity and grid size of one tab.
type tabGrid struct {
	sheetID int64
	rows    int64
	columns int64
}

// GoogleWriterOption configures a GoogleWriter.
type GoogleWriterOption func(*googleWriterConfig)

type googleWriterConfig struct {
	clientOptions []option.ClientOption
	logger        *slog.Logger
}

// WithCredentialsJSON authenticates with a service-account key and requests
// the Sheets and Drive scopes.
func WithCredentialsJSON(credentials []byte) GoogleWriterOption {
	return func(c *googleWriterConfig) {
		if len(credentials) == 0 {
			return
		}
		c.clientOptions = append(c.clientOptions,
			option.WithCredentialsJSON(credentials),
			option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
		)
	}
}

// WithClientOptions passes raw client options to both API services.
func WithClientOptions(opts ...option.ClientOption) GoogleWriterOption {
	return func(c *googleWriterConfig) {
		c.clientOptions = append(c.clientOptions, opts...)
	}
}

// WithGoogleLogger sets the writer's logger.
func WithGoogleLogger(logger *slog.Logger) GoogleWriterOption {
	return func(c *googleWriterConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewGoogleWriter creates a writer for the spreadsheet named title.
// No API call is made until the first Write.
func NewGoogleWriter(ctx context.Context, title string, opts ...GoogleWriterOption) (*GoogleWriter, error) {
	if title == "" {
		return nil, ErrMissingSpreadsheetName
	}

	cfg := &googleWriterConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.clientOptions) == 0 {
		return nil, ErrMissingCredentials
	}

	sheetsService, err := sheets.NewService(ctx, cfg.clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveService, err := drive.NewService(ctx, cfg.clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GoogleWriter{
		sheets: sheetsService,
		drive:  driveService,
		logger: cfg.logger,
		title:  title,
		tabs:   make(map[string]tabGrid),
	}, nil
}

// Write replaces the contents of tab with table, starting at A1.
func (w *GoogleWriter) Write(ctx context.Context, tab string, table model.SheetTable) error {
	if err := validateTable(table); err != nil {
		return err
	}

	id, err := w.spreadsheet(ctx)
	if err != nil {
		return err
	}
	if err := w.ensureTab(ctx, id, tab, table.RowCount()); err != nil {
		return err
	}

	sheetRange := quoteTabName(tab)
	if _, err := w.sheets.Spreadsheets.Values.Clear(id, sheetRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return apiError("clear tab "+tab, err)
	}

	target := fmt.Sprintf("%s!A1:B%d", sheetRange, table.RowCount())
	values := &sheets.ValueRange{
		Range:          target,
		MajorDimension: "ROWS",
		Values:         table.Values(),
	}
	if _, err := w.sheets.Spreadsheets.Values.Update(id, target, values).
		ValueInputOption(rawInput).Context(ctx).Do(); err != nil {
		return apiError("update tab "+tab, err)
	}

	w.logger.Debug("wrote tab", "spreadsheet", w.title, "tab", tab, "rows", table.RowCount())
	return nil
}

// Close implements Writer. The API services hold no resources.
func (w *GoogleWriter) Close() error {
	return nil
}

// Name implements Writer.
func (w *GoogleWriter) Name() string {
	return "google sheets: " + w.title
}

// SpreadsheetID returns the resolved spreadsheet ID, or "" before the first Write.
func (w *GoogleWriter) SpreadsheetID() string {
	return w.spreadsheetID
}

// spreadsheet returns the ID of the destination spreadsheet, finding it by
// name or creating it.
func (w *GoogleWriter) spreadsheet(ctx context.Context) (string, error) {
	if w.spreadsheetID != "" {
		return w.spreadsheetID, nil
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQueryValue(w.title), spreadsheetMimeType)
	list, err := w.drive.Files.List().Q(query).Fields("files(id, name)").PageSize(10).Context(ctx).Do()
	if err != nil {
		return "", apiError("find spreadsheet "+w.title, err)
	}

	if len(list.Files) > 0 {
		w.spreadsheetID = list.Files[0].Id
		w.logger.Debug("using existing spreadsheet", "spreadsheet", w.title)
		return w.spreadsheetID, nil
	}

	created, err := w.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: w.title},
	}).Context(ctx).Do()
	if err != nil {
		return "", apiError("create spreadsheet "+w.title, err)
	}

	w.spreadsheetID = created.SpreadsheetId
	w.logger.Info("created spreadsheet", "spreadsheet", w.title)
	return w.spreadsheetID, nil
}

// ensureTab makes sure tab exists with room for rows rows and the table's
// columns. Missing tabs are added; existing tabs that are too small grow.
func (w *GoogleWriter) ensureTab(ctx context.Context, id, tab string, rows int) error {
	grid, ok := w.tabs[tab]
	if !ok {
		if err := w.loadTabs(ctx, id); err != nil {
			return err
		}
		grid, ok = w.tabs[tab]
	}
	if !ok {
		return w.addTab(ctx, id, tab, rows)
	}
	return w.growTab(ctx, id, tab, grid, int64(rows))
}

// loadTabs refreshes the tab cache from the spreadsheet.
func (w *GoogleWriter) loadTabs(ctx context.Context, id string) error {
	existing, err := w.sheets.Spreadsheets.Get(id).
		Fields("sheets.properties(sheetId,title,gridProperties(rowCount,columnCount))").
		Context(ctx).Do()
	if err != nil {
		return apiError("read tabs", err)
	}
	for _, s := range existing.Sheets {
		if s.Properties == nil {
			continue
		}
		grid := tabGrid{sheetID: s.Properties.SheetId}
		if gp := s.Properties.GridProperties; gp != nil {
			grid.rows = gp.RowCount
			grid.columns = gp.ColumnCount
		}
		w.tabs[s.Properties.Title] = grid
	}
	return nil
}

func (w *GoogleWriter) addTab(ctx context.Context, id, tab string, rows int) error {
	grid := tabGrid{rows: int64(max(DefaultTabRows, rows)), columns: DefaultTabColumns}
	add := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: tab,
					GridProperties: &sheets.GridProperties{
						RowCount:    grid.rows,
						ColumnCount: grid.columns,
					},
				},
			},
		}},
	}
	resp, err := w.sheets.Spreadsheets.BatchUpdate(id, add).Context(ctx).Do()
	if err != nil {
		return apiError("add tab "+tab, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		grid.sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	w.tabs[tab] = grid
	w.logger.Debug("added tab", "spreadsheet", w.title, "tab", tab)
	return nil
}

// growTab appends rows and columns to a tab whose grid cannot hold the table.
func (w *GoogleWriter) growTab(ctx context.Context, id, tab string, grid tabGrid, rows int64) error {
	var requests []*sheets.Request
	if rows > grid.rows {
		requests = append(requests, appendDimension(grid.sheetID, "ROWS", rows-grid.rows))
	}
	if grid.columns < DefaultTabColumns {
		requests = append(requests, appendDimension(grid.sheetID, "COLUMNS", DefaultTabColumns-grid.columns))
	}
	if len(requests) == 0 {
		return nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := w.sheets.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do(); err != nil {
		return apiError("resize tab "+tab, err)
	}

	grid.rows = max(grid.rows, rows)
	grid.columns = max(grid.columns, DefaultTabColumns)
	w.tabs[tab] = grid
	w.logger.Debug("resized tab", "spreadsheet", w.title, "tab", tab, "rows", grid.rows)
	return nil
}

func appendDimension(sheetID int64, dimension string, length int64) *sheets.Request {
	return &sheets.Request{
		AppendDimension: &sheets.AppendDimensionRequest{
			SheetId:   sheetID,
			Dimension: dimension,
			Length:    length,
			// sheetId 0 is the first tab and must still be sent.
			ForceSendFields: []string{"SheetId"},
		},
	}
}

// quoteTabName quotes a tab title for A1 notation.
func quoteTabName(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// escapeQueryValue escapes a string literal for a Drive search query.
func escapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}

// apiError wraps a Google API failure with the operation and HTTP status.
func apiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fmt.Errorf("failed to %s: google api status %d: %w", op, gerr.Code, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
