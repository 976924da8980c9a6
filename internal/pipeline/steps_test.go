package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/nao1215/voiceline/internal/crawler"
	"github.com/nao1215/voiceline/internal/extract"
	"github.com/nao1215/voiceline/internal/model"
)

const jettPage = `<html><head><title>Jett/Quotes</title></head><body>
<ul>
<li><audio src="https://cdn.example/jett/1.mp3/revision/latest?cb=1"></audio> "They will not catch me."</li>
<li><audio src="https://cdn.example/jett/2.mp3?cb=2"></audio> "Watch this!"</li>
<li><audio src="https://cdn.example/jett/3.ogg"></audio> "Broken clip"</li>
</ul>
</body></html>`

const sagePage = `<html><head><title>Sage/Quotes</title></head><body>
<ul>
<li><audio src="https://cdn.example/sage/1.mp3"></audio> "Watch this!"</li>
<li><audio src="https://cdn.example/sage/2.mp3"></audio> "I am both shield and sword."</li>
</ul>
</body></html>`

// recordingWriter is a sheet.Writer that keeps every table it receives.
type recordingWriter struct {
	mu     sync.Mutex
	tables map[string]model.SheetTable
	order  []string
	err    error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{tables: make(map[string]model.SheetTable)}
}

func (w *recordingWriter) Write(_ context.Context, tab string, table model.SheetTable) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	w.tables[tab] = table
	w.order = append(w.order, tab)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) Name() string { return "recording" }

func (w *recordingWriter) table(tab string) (model.SheetTable, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	table, ok := w.tables[tab]
	return table, ok
}

func (w *recordingWriter) tabs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.order...)
}

// newWikiServer serves the quote pages used by the pipeline tests.
func newWikiServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	servePage := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/wiki/Jett/Quotes", servePage(jettPage))
	mux.HandleFunc("/wiki/Sage/Quotes", servePage(sagePage))
	mux.HandleFunc("/wiki/Empty/Quotes", servePage(`<html><body><p>No quotes yet</p></body></html>`))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestFetchStep tests downloading a source page.
func TestFetchStep(t *testing.T) {
	t.Parallel()

	server := newWikiServer(t)
	step := NewFetchStep(crawler.NewFetcher(server.Client()), WithFetchLogger(discardLogger()))

	if step.Name() != StepFetch {
		t.Errorf("expected name %q, got %q", StepFetch, step.Name())
	}

	t.Run("records the page", func(t *testing.T) {
		t.Parallel()

		report := model.NewSourceReport(server.URL + "/wiki/Jett/Quotes")
		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Page == nil {
			t.Fatal("expected page on report")
		}
		if len(report.Page.Raw) == 0 {
			t.Error("expected page body")
		}
		if report.Page.Hash == "" {
			t.Error("expected page hash")
		}
	})

	t.Run("not found keeps the page and fails", func(t *testing.T) {
		t.Parallel()

		report := model.NewSourceReport(server.URL + "/wiki/Nobody/Quotes")
		err := step.Do(context.Background(), report)

		var statusErr *crawler.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404 StatusError, got %v", err)
		}
		if report.Page == nil || report.Page.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 page on report, got %+v", report.Page)
		}
	})
}

// TestScanStep tests extraction from a fetched page.
func TestScanStep(t *testing.T) {
	t.Parallel()

	t.Run("requires a page", func(t *testing.T) {
		t.Parallel()

		step := NewScanStep(extract.NewScanner(nil), WithScanLogger(discardLogger()))
		err := step.Do(context.Background(), model.NewSourceReport("https://wiki.example/wiki/Jett/Quotes"))
		if !errors.Is(err, ErrNoPage) {
			t.Errorf("expected ErrNoPage, got %v", err)
		}
	})

	t.Run("records pairs and stats", func(t *testing.T) {
		t.Parallel()

		step := NewScanStep(extract.NewScanner(nil), WithScanLogger(discardLogger()))
		report := model.NewSourceReport("https://wiki.example/wiki/Jett/Quotes")
		report.TabName = "Jett"
		report.Page = &model.Page{Raw: []byte(jettPage)}

		if err := step.Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := model.PageResult{
			{AudioLink: "https://cdn.example/jett/1.mp3", Quote: "They will not catch me."},
			{AudioLink: "https://cdn.example/jett/2.mp3", Quote: "Watch this!"},
		}
		if !reflect.DeepEqual(report.Result, want) {
			t.Errorf("expected %v, got %v", want, report.Result)
		}
		if report.Stats.Items != 3 || report.Stats.Kept != 2 || report.Stats.MissingAudio != 1 {
			t.Errorf("unexpected stats %+v", report.Stats)
		}
		if report.Page.Title != "Jett/Quotes" {
			t.Errorf("expected title Jett/Quotes, got %q", report.Page.Title)
		}
	})
}

// TestFormatStep tests table construction.
func TestFormatStep(t *testing.T) {
	t.Parallel()

	report := model.NewSourceReport("https://wiki.example/wiki/Jett/Quotes")
	report.Result = model.PageResult{
		{AudioLink: "https://cdn.example/1.mp3", Quote: "One"},
	}

	if err := NewFormatStep().Do(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.SheetTable{
		{model.HeaderAudioLinks, model.HeaderQuotes},
		{"https://cdn.example/1.mp3", "One"},
	}
	if !reflect.DeepEqual(report.Table, want) {
		t.Errorf("expected %v, got %v", want, report.Table)
	}
}

// TestWriteStep tests handing the table to the writer.
func TestWriteStep(t *testing.T) {
	t.Parallel()

	table := model.SheetTable{
		{model.HeaderAudioLinks, model.HeaderQuotes},
		{"https://cdn.example/1.mp3", "One"},
	}

	t.Run("writes to the derived tab", func(t *testing.T) {
		t.Parallel()

		writer := newRecordingWriter()
		report := model.NewSourceReport("https://wiki.example/wiki/Jett/Quotes")
		report.TabName = "Jett"
		report.Table = table

		if err := NewWriteStep(writer, WithWriteLogger(discardLogger())).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.Written {
			t.Error("expected report marked written")
		}
		got, ok := writer.table("Jett")
		if !ok || !reflect.DeepEqual(got, table) {
			t.Errorf("expected table written to Jett, got %v", got)
		}
	})

	t.Run("wraps writer errors", func(t *testing.T) {
		t.Parallel()

		errQuota := errors.New("quota exceeded")
		writer := newRecordingWriter()
		writer.err = errQuota

		report := model.NewSourceReport("https://wiki.example/wiki/Jett/Quotes")
		report.TabName = "Jett"
		report.Table = table

		err := NewWriteStep(writer, WithWriteLogger(discardLogger())).Do(context.Background(), report)
		if !errors.Is(err, errQuota) {
			t.Errorf("expected wrapped quota error, got %v", err)
		}
		if report.Written {
			t.Error("expected report not marked written")
		}
	})
}

// TestScrapePipelineFactory tests the assembled per-source pipeline.
func TestScrapePipelineFactory(t *testing.T) {
	t.Parallel()

	server := newWikiServer(t)
	writer := newRecordingWriter()
	factory := NewScrapePipelineFactory(
		crawler.NewFetcher(server.Client()),
		extract.NewScanner(nil),
		writer,
		discardLogger(),
	)

	p := factory()
	want := []string{StepFetch, StepScan, StepFormat, StepWrite}
	if !reflect.DeepEqual(p.StepNames(), want) {
		t.Fatalf("expected steps %v, got %v", want, p.StepNames())
	}

	report := model.NewSourceReport(server.URL + "/wiki/Empty/Quotes")
	report.TabName = "Empty"
	if err := p.Execute(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := writer.table("Empty")
	if !ok {
		t.Fatal("expected a table written for a page without quotes")
	}
	if !reflect.DeepEqual(got, model.SheetTable{model.Header()}) {
		t.Errorf("expected header-only table, got %v", got)
	}
	if !reflect.DeepEqual(report.PerformedSteps, want) {
		t.Errorf("expected performed steps %v, got %v", want, report.PerformedSteps)
	}
}
