package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/voiceline/internal/config"
	"github.com/nao1215/voiceline/internal/crawler"
	"github.com/nao1215/voiceline/internal/database"
)

const jettPage = `<html><head><title>Jett/Quotes</title></head><body>
<ul>
<li><audio src="https://cdn.example/jett/1.mp3/revision/latest?cb=1"></audio> "They will not catch me."</li>
<li><audio src="https://cdn.example/jett/2.mp3?cb=2"></audio> "Watch this!"</li>
<li>No clip for this one</li>
</ul>
</body></html>`

const sagePage = `<html><head><title>Sage/Quotes</title></head><body>
<ul>
<li><audio src="https://cdn.example/sage/1.mp3"></audio> "Watch this!"</li>
<li><audio src="https://cdn.example/sage/2.mp3"></audio> "I am both shield and sword."</li>
</ul>
</body></html>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newWikiServer serves two quote pages; every other path is a 404.
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

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newTestConfig returns a workbook config whose files live under t.TempDir.
func newTestConfig(t *testing.T, sources ...string) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.NewConfig()
	cfg.Sources = sources
	cfg.Output = config.OutputWorkbook
	cfg.WorkbookPath = filepath.Join(dir, "out", "voicelines.xlsx")
	cfg.DBDir = filepath.Join(dir, "data")
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestNewScrapeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScrapeCmd()

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"output", "o", config.OutputGoogle},
		{"spreadsheet", "s", config.DefaultSpreadsheetName},
		{"workbook", "w", ""},
		{"credentials", "", ""},
		{"env-file", "", defaultEnvFile},
		{"dry-run", "n", "false"},
		{"timeout", "t", config.DefaultTimeout.String()},
		{"proxy", "", ""},
		{"keep-going", "k", "false"},
		{"no-history", "", "false"},
		{"config", "c", ""},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"report-file", "r", ""},
	}

	for _, tt := range flags {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("arguments become sources", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		configPath := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(configPath, []byte("{}\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := cmd.ParseFlags([]string{"-c", configPath, "-k", "-o", "xlsx", "-w", "a.xlsx"}); err != nil {
			t.Fatal(err)
		}

		args := []string{"https://valorant.fandom.com/wiki/Jett/Quotes"}
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(cfg.Sources, args) {
			t.Errorf("expected sources %v, got %v", args, cfg.Sources)
		}
		if !cfg.KeepGoing {
			t.Error("expected keep-going to be set")
		}
		if cfg.Output != config.OutputWorkbook || cfg.WorkbookPath != "a.xlsx" {
			t.Errorf("unexpected destination %q %q", cfg.Output, cfg.WorkbookPath)
		}
		if !cfg.SaveToDB {
			t.Error("expected history to be recorded by default")
		}
	})

	t.Run("config file fills unset flags", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "voiceline.yaml")
		content := `sources:
  - https://valorant.fandom.com/wiki/Sage/Quotes
spreadsheet: from_file
timeout: 10s
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewScrapeCmd()
		if err := cmd.ParseFlags([]string{"-c", configPath, "-t", "3s", "--no-history"}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://valorant.fandom.com/wiki/Sage/Quotes"}
		if !reflect.DeepEqual(cfg.Sources, want) {
			t.Errorf("expected sources %v, got %v", want, cfg.Sources)
		}
		if cfg.Spreadsheet != "from_file" {
			t.Errorf("expected spreadsheet from file, got %q", cfg.Spreadsheet)
		}
		if cfg.Timeout != 3*time.Second {
			t.Errorf("expected flag timeout to win, got %v", cfg.Timeout)
		}
		if cfg.SaveToDB {
			t.Error("expected --no-history to disable recording")
		}
	})

	t.Run("default sources when none given", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "empty.yaml")
		if err := os.WriteFile(configPath, []byte("{}\n"), 0600); err != nil {
			t.Fatal(err)
		}

		cmd := NewScrapeCmd()
		if err := cmd.ParseFlags([]string{"-c", configPath}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(cfg.Sources, config.DefaultSources()) {
			t.Errorf("expected default sources, got %v", cfg.Sources)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatal(err)
		}

		_, err := buildConfig(cmd, nil)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	const key = "VOICELINE_TEST_ENV_FILE_VALUE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()

	t.Run("missing default file is ignored", func(t *testing.T) {
		if err := loadEnvFile(filepath.Join(dir, ".env"), false); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		if err := loadEnvFile(filepath.Join(dir, "missing.env"), true); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("loads variables", func(t *testing.T) {
		path := filepath.Join(dir, "test.env")
		if err := os.WriteFile(path, []byte(key+"=loaded\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := loadEnvFile(path, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv(key); got != "loaded" {
			t.Errorf("expected loaded, got %q", got)
		}
	})
}

func TestRunScrape(t *testing.T) {
	t.Parallel()

	t.Run("writes workbook and records run", func(t *testing.T) {
		t.Parallel()

		server := newWikiServer(t)
		cfg := newTestConfig(t,
			server.URL+"/wiki/Jett/Quotes",
			server.URL+"/wiki/Sage/Quotes",
		)

		var stdout, stderr bytes.Buffer
		if err := runScrape(context.Background(), cfg, discardLogger(), &stdout, &stderr); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f, err := excelize.OpenFile(cfg.WorkbookPath)
		if err != nil {
			t.Fatalf("failed to open workbook: %v", err)
		}
		defer f.Close()

		jett, err := f.GetRows("Jett")
		if err != nil {
			t.Fatal(err)
		}
		wantJett := [][]string{
			{"audio_links", "quotes"},
			{"https://cdn.example/jett/1.mp3", "They will not catch me."},
			{"https://cdn.example/jett/2.mp3", "Watch this!"},
		}
		if !reflect.DeepEqual(jett, wantJett) {
			t.Errorf("unexpected Jett rows:\n got %v\nwant %v", jett, wantJett)
		}

		sage, err := f.GetRows("Sage")
		if err != nil {
			t.Fatal(err)
		}
		wantSage := [][]string{
			{"audio_links", "quotes"},
			{"https://cdn.example/sage/2.mp3", "I am both shield and sword."},
		}
		if !reflect.DeepEqual(sage, wantSage) {
			t.Errorf("unexpected Sage rows:\n got %v\nwant %v", sage, wantSage)
		}

		if !strings.Contains(stdout.String(), "VOICELINE RUN REPORT") {
			t.Errorf("expected text report on stdout, got %q", stdout.String())
		}
		if !strings.Contains(stderr.String(), "[1/2] OK") {
			t.Errorf("expected progress on stderr, got %q", stderr.String())
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 recorded run, got %d", len(runs))
		}
		if runs[0].Kept != 3 || runs[0].Duplicates != 1 {
			t.Errorf("unexpected totals: kept %d, duplicates %d", runs[0].Kept, runs[0].Duplicates)
		}
		if runs[0].Output != config.OutputWorkbook {
			t.Errorf("expected output %q, got %q", config.OutputWorkbook, runs[0].Output)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		t.Parallel()

		server := newWikiServer(t)
		cfg := newTestConfig(t, server.URL+"/wiki/Jett/Quotes")
		cfg.DryRun = true
		cfg.SaveToDB = false
		cfg.JSONReport = true

		var stdout bytes.Buffer
		if err := runScrape(context.Background(), cfg, discardLogger(), &stdout, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(cfg.WorkbookPath); !os.IsNotExist(err) {
			t.Errorf("expected no workbook, stat returned %v", err)
		}
		if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); !os.IsNotExist(err) {
			t.Errorf("expected no history database, stat returned %v", err)
		}

		var report struct {
			Status string `json:"status"`
			Run    struct {
				Output string `json:"output"`
			} `json:"run"`
		}
		if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
			t.Fatalf("invalid JSON report: %v", err)
		}
		if report.Status != "complete" {
			t.Errorf("expected complete, got %q", report.Status)
		}
		if report.Run.Output != outputDryRun {
			t.Errorf("expected output %q, got %q", outputDryRun, report.Run.Output)
		}
	})

	t.Run("failed source stops run", func(t *testing.T) {
		t.Parallel()

		server := newWikiServer(t)
		cfg := newTestConfig(t,
			server.URL+"/wiki/Missing/Quotes",
			server.URL+"/wiki/Jett/Quotes",
		)
		cfg.ReportFile = filepath.Join(t.TempDir(), "reports", "run.md")
		cfg.MarkdownReport = true

		err := runScrape(context.Background(), cfg, discardLogger(), io.Discard, io.Discard)
		var statusErr *crawler.StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected StatusError, got %v", err)
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if !strings.Contains(string(content), "[!CAUTION]") {
			t.Errorf("expected aborted run alert in report, got %q", content)
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(runs) != 1 || !runs[0].Aborted || runs[0].Sources != 1 {
			t.Errorf("expected one aborted run with one source, got %+v", runs)
		}
	})

	t.Run("keep going continues past failure", func(t *testing.T) {
		t.Parallel()

		server := newWikiServer(t)
		cfg := newTestConfig(t,
			server.URL+"/wiki/Missing/Quotes",
			server.URL+"/wiki/Jett/Quotes",
		)
		cfg.KeepGoing = true
		cfg.SaveToDB = false

		if err := runScrape(context.Background(), cfg, discardLogger(), io.Discard, io.Discard); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		f, err := excelize.OpenFile(cfg.WorkbookPath)
		if err != nil {
			t.Fatalf("failed to open workbook: %v", err)
		}
		defer f.Close()
		if idx, _ := f.GetSheetIndex("Jett"); idx == -1 {
			t.Error("expected Jett tab to be written")
		}
	})
}

func TestAcquireRunLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lock, err := acquireRunLock(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := acquireRunLock(dir); !errors.Is(err, errAlreadyRunning) {
		t.Errorf("expected errAlreadyRunning, got %v", err)
	}

	if err := lock.Unlock(); err != nil {
		t.Fatal(err)
	}

	again, err := acquireRunLock(dir)
	if err != nil {
		t.Fatalf("expected lock after release, got %v", err)
	}
	_ = again.Unlock()
}

func TestDescribeDestination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		cfg             *config.Config
		wantDestination string
		wantOutput      string
	}{
		{
			name:            "google",
			cfg:             &config.Config{Output: config.OutputGoogle, Spreadsheet: "valo_wiki"},
			wantDestination: "valo_wiki",
			wantOutput:      config.OutputGoogle,
		},
		{
			name:            "workbook",
			cfg:             &config.Config{Output: config.OutputWorkbook, WorkbookPath: "a.xlsx"},
			wantDestination: "a.xlsx",
			wantOutput:      config.OutputWorkbook,
		},
		{
			name:            "dry run",
			cfg:             &config.Config{Output: config.OutputGoogle, Spreadsheet: "valo_wiki", DryRun: true},
			wantDestination: "valo_wiki",
			wantOutput:      outputDryRun,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			destination, output := describeDestination(tt.cfg)
			if destination != tt.wantDestination || output != tt.wantOutput {
				t.Errorf("got (%q, %q), want (%q, %q)", destination, output, tt.wantDestination, tt.wantOutput)
			}
		})
	}
}

func TestNewSheetWriterRequiresCredentials(t *testing.T) {
	t.Setenv(config.CredentialsEnvVar, "")

	cfg := config.NewConfig()
	if _, err := newSheetWriter(context.Background(), cfg, discardLogger()); !errors.Is(err, config.ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}
