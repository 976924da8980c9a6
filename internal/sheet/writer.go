package sheet

import (
	"context"
	"log/slog"

	"github.com/nao1215/voiceline/internal/model"
)

// Writer persists tables to named tabs of one destination.
// Write replaces the tab's previous contents; the tab is created when it
// does not exist yet.
type Writer interface {
	// Write stores table in the tab named tab.
	Write(ctx context.Context, tab string, table model.SheetTable) error

	// Close releases the destination. Writes after Close are invalid.
	Close() error

	// Name describes the destination for logs and reports.
	Name() string
}

// DiscardWriter accepts every table and stores nothing.
type DiscardWriter struct {
	logger *slog.Logger
}

// NewDiscardWriter creates a DiscardWriter. A nil logger uses slog.Default().
func NewDiscardWriter(logger *slog.Logger) *DiscardWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscardWriter{logger: logger}
}

// Write validates the table and drops it.
func (w *DiscardWriter) Write(ctx context.Context, tab string, table model.SheetTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateTable(table); err != nil {
		return err
	}

	w.logger.Info("dry run: table not written", "tab", tab, "rows", table.RowCount())
	return nil
}

// Close implements Writer.
func (w *DiscardWriter) Close() error {
	return nil
}

// Name implements Writer.
func (w *DiscardWriter) Name() string {
	return "dry run"
}
