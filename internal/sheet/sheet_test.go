package sheet

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/voiceline/internal/model"
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestFormatColumns tests building tables from columns.
func TestFormatColumns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		audioLinks []string
		quotes     []string
		want       model.SheetTable
	}{
		{
			name: "empty columns give header only",
			want: model.SheetTable{{"audio_links", "quotes"}},
		},
		{
			name:       "equal lengths",
			audioLinks: []string{"a.mp3", "b.mp3"},
			quotes:     []string{"A", "B"},
			want: model.SheetTable{
				{"audio_links", "quotes"},
				{"a.mp3", "A"},
				{"b.mp3", "B"},
			},
		},
		{
			name:       "shorter quotes are padded",
			audioLinks: []string{"a.mp3", "b.mp3"},
			quotes:     []string{"A"},
			want: model.SheetTable{
				{"audio_links", "quotes"},
				{"a.mp3", "A"},
				{"b.mp3", ""},
			},
		},
		{
			name:       "shorter links are padded",
			audioLinks: nil,
			quotes:     []string{"A"},
			want: model.SheetTable{
				{"audio_links", "quotes"},
				{"", "A"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FormatColumns(tt.audioLinks, tt.quotes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestFormatTable tests building tables from page results.
func TestFormatTable(t *testing.T) {
	t.Parallel()

	t.Run("three pairs give four rows in order", func(t *testing.T) {
		t.Parallel()

		result := model.PageResult{
			{AudioLink: "1.mp3", Quote: "one"},
			{AudioLink: "2.mp3", Quote: "two"},
			{AudioLink: "3.mp3", Quote: "three"},
		}

		table := FormatTable(result)
		if table.RowCount() != 4 {
			t.Fatalf("expected 4 rows, got %d", table.RowCount())
		}
		for i, pair := range result {
			row := table[i+1]
			if row[0] != pair.AudioLink || row[1] != pair.Quote {
				t.Errorf("row %d: expected %v, got %v", i+1, pair, row)
			}
		}
	})

	t.Run("empty result gives header only", func(t *testing.T) {
		t.Parallel()

		table := FormatTable(model.PageResult{})
		if table.RowCount() != 1 || table.DataRows() != nil {
			t.Errorf("expected header-only table, got %v", table)
		}
	})
}

// TestTabName tests deriving tab names from source addresses.
func TestTabName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "trailing slash", address: "https://site.example/wiki/Jett/Quotes/", want: "Jett"},
		{name: "no trailing slash", address: "https://site.example/wiki/Jett/Quotes", want: "Jett"},
		{name: "fandom address", address: "https://valorant.fandom.com/wiki/KAYO/Quotes", want: "KAYO"},
		{name: "relative path", address: "/Sage/Quotes/", want: "Sage"},
		{name: "single segment", address: "Quotes", wantErr: true},
		{name: "empty", address: "", wantErr: true},
		{name: "empty second-to-last segment", address: "https://site.example/wiki//Quotes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := TabName(tt.address)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSourceAddress) {
					t.Errorf("expected ErrInvalidSourceAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestDiscardWriter tests the dry-run writer.
func TestDiscardWriter(t *testing.T) {
	t.Parallel()

	w := NewDiscardWriter(discardLogger())
	defer w.Close()

	if err := w.Write(context.Background(), "Jett", FormatTable(nil)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := w.Write(context.Background(), "Jett", model.SheetTable{{"only one"}}); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable, got %v", err)
	}
	if err := w.Write(context.Background(), "Jett", nil); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("expected ErrInvalidTable for empty table, got %v", err)
	}
}

// readTab reads every row of a tab from a saved workbook.
func readTab(t *testing.T, path, tab string) [][]string {
	t.Helper()

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(tab)
	if err != nil {
		t.Fatalf("failed to read tab %s: %v", tab, err)
	}
	return rows
}

// TestWorkbookWriter tests writing tabs to a local workbook.
func TestWorkbookWriter(t *testing.T) {
	t.Parallel()

	t.Run("creates workbook and tabs", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out", "valo_wiki.xlsx")
		w, err := NewWorkbookWriter(path, WithWorkbookLogger(discardLogger()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		jett := FormatTable(model.PageResult{{AudioLink: "j.mp3", Quote: "Watch this!"}})
		sage := FormatTable(model.PageResult{{AudioLink: "s.mp3", Quote: "Be still."}})
		if err := w.Write(context.Background(), "Jett", jett); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.Write(context.Background(), "Sage", sage); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("failed to close: %v", err)
		}

		f, err := excelize.OpenFile(path)
		if err != nil {
			t.Fatalf("failed to open workbook: %v", err)
		}
		sheets := f.GetSheetList()
		f.Close()

		if !reflect.DeepEqual(sheets, []string{"Jett", "Sage"}) {
			t.Errorf("expected tabs [Jett Sage], got %v", sheets)
		}

		if got := readTab(t, path, "Jett"); !reflect.DeepEqual(got, [][]string(jett)) {
			t.Errorf("expected %v, got %v", jett, got)
		}
	})

	t.Run("rewriting a tab replaces previous rows", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "valo_wiki.xlsx")

		first, err := NewWorkbookWriter(path, WithWorkbookLogger(discardLogger()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		long := FormatTable(model.PageResult{
			{AudioLink: "1.mp3", Quote: "one"},
			{AudioLink: "2.mp3", Quote: "two"},
			{AudioLink: "3.mp3", Quote: "three"},
		})
		if err := first.Write(context.Background(), "Omen", long); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first.Close()

		second, err := NewWorkbookWriter(path, WithWorkbookLogger(discardLogger()))
		if err != nil {
			t.Fatalf("unexpected error reopening: %v", err)
		}
		short := FormatTable(model.PageResult{{AudioLink: "4.mp3", Quote: "four"}})
		if err := second.Write(context.Background(), "Omen", short); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second.Close()

		if got := readTab(t, path, "Omen"); !reflect.DeepEqual(got, [][]string(short)) {
			t.Errorf("expected %v, got %v", short, got)
		}
	})

	t.Run("requires a path", func(t *testing.T) {
		t.Parallel()

		if _, err := NewWorkbookWriter(""); !errors.Is(err, ErrMissingWorkbookPath) {
			t.Errorf("expected ErrMissingWorkbookPath, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkbookWriter(filepath.Join(t.TempDir(), "x.xlsx"), WithWorkbookLogger(discardLogger()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := w.Write(ctx, "Jett", FormatTable(nil)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
