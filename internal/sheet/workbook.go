package sheet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/voiceline/internal/model"
)

// placeholderSheet is the worksheet excelize adds to every new workbook.
const placeholderSheet = "Sheet1"

// WorkbookWriter writes tables to tabs of a local .xlsx workbook.
// The workbook is saved after every Write, so a failed run keeps the tabs
// written before the failure.
type WorkbookWriter struct {
	path   string
	file   *excelize.File
	logger *slog.Logger

	// placeholder is true while a newly created workbook still holds the
	// default worksheet.
	placeholder bool
}

// WorkbookWriterOption configures a WorkbookWriter.
type WorkbookWriterOption func(*WorkbookWriter)

// WithWorkbookLogger sets the writer's logger.
func WithWorkbookLogger(logger *slog.Logger) WorkbookWriterOption {
	return func(w *WorkbookWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorkbookWriter opens the workbook at path, or starts a new one when the
// file does not exist yet.
func NewWorkbookWriter(path string, opts ...WorkbookWriterOption) (*WorkbookWriter, error) {
	if path == "" {
		return nil, ErrMissingWorkbookPath
	}

	w := &WorkbookWriter{
		path:   path,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat workbook: %w", err)
		}
		w.file = excelize.NewFile()
		w.placeholder = true
		return w, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	w.file = f
	return w, nil
}

// Write replaces the contents of tab with table and saves the workbook.
func (w *WorkbookWriter) Write(ctx context.Context, tab string, table model.SheetTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTable(table); err != nil {
		return err
	}

	index, err := w.ensureTab(tab)
	if err != nil {
		return err
	}

	for i, row := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := append([]string(nil), row...)
		if err := w.file.SetSheetRow(tab, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of tab %s: %w", i+1, tab, err)
		}
	}

	if w.placeholder && !isPlaceholder(tab) {
		if err := w.file.DeleteSheet(placeholderSheet); err != nil {
			return fmt.Errorf("failed to remove placeholder sheet: %w", err)
		}
		w.placeholder = false
		if index, err = w.file.GetSheetIndex(tab); err != nil {
			return err
		}
	}
	w.file.SetActiveSheet(index)

	if err := w.save(); err != nil {
		return err
	}

	w.logger.Debug("wrote tab", "workbook", w.path, "tab", tab, "rows", table.RowCount())
	return nil
}

// Close releases the workbook.
func (w *WorkbookWriter) Close() error {
	return w.file.Close()
}

// Name implements Writer.
func (w *WorkbookWriter) Name() string {
	return "workbook: " + w.path
}

// ensureTab returns the index of tab, creating it or clearing its rows.
func (w *WorkbookWriter) ensureTab(tab string) (int, error) {
	index, err := w.file.GetSheetIndex(tab)
	if err != nil {
		return -1, fmt.Errorf("invalid tab name %q: %w", tab, err)
	}

	if index == -1 {
		index, err = w.file.NewSheet(tab)
		if err != nil {
			return -1, fmt.Errorf("failed to add tab %s: %w", tab, err)
		}
		return index, nil
	}

	rows, err := w.file.GetRows(tab)
	if err != nil {
		return -1, fmt.Errorf("failed to read tab %s: %w", tab, err)
	}
	for row := len(rows); row >= 1; row-- {
		if err := w.file.RemoveRow(tab, row); err != nil {
			return -1, fmt.Errorf("failed to clear tab %s: %w", tab, err)
		}
	}
	return index, nil
}

// save writes the workbook to disk, creating parent directories as needed.
func (w *WorkbookWriter) save() error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create workbook directory: %w", err)
		}
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.path, err)
	}
	return nil
}

func isPlaceholder(tab string) bool {
	return strings.EqualFold(tab, placeholderSheet)
}
