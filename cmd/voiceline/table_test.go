package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/voiceline/internal/model"
)

func TestRenderTable(t *testing.T) {
	t.Parallel()

	headers := []string{"Tab", "Kept"}
	rows := [][]string{{"Jett", "12"}, {"Sage"}}

	t.Run("terminal", func(t *testing.T) {
		t.Parallel()
		out := renderTable(headers, rows, []columnAlignment{alignLeft, alignRight})
		for _, want := range []string{"Tab", "Kept", "Jett", "12", "Sage", "╭"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in table:\n%s", want, out)
			}
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()
		out := renderMarkdownTable(headers, rows, []columnAlignment{alignLeft, alignRight})
		if !strings.Contains(out, "| Jett |") {
			t.Errorf("expected markdown row, got:\n%s", out)
		}
		if !strings.Contains(out, "---:") {
			t.Errorf("expected right-aligned separator, got:\n%s", out)
		}
	})

	t.Run("no columns", func(t *testing.T) {
		t.Parallel()
		if out := renderTable(nil, rows, nil); out != "" {
			t.Errorf("expected empty output, got %q", out)
		}
	})
}

func TestProgressLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newProgress(&buf, 12)
	if p.colorize {
		t.Fatal("buffers must not be colorized")
	}

	ok := model.NewSourceReport("https://valorant.fandom.com/wiki/Jett/Quotes")
	ok.TabName = "Jett"
	ok.Written = true
	ok.Stats = model.ScanStats{Items: 5, Kept: 4, Duplicates: 1}

	failed := model.NewSourceReport("https://valorant.fandom.com/wiki/Sage/Quotes")
	failed.TabName = "Sage"
	failed.SetError(errors.New("unexpected status 503"))

	p.report(ok, 0)
	p.report(failed, 11)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "[ 1/12] OK") || !strings.Contains(lines[0], "4 kept, 1 skipped") {
		t.Errorf("unexpected success line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[12/12] FAIL") || !strings.Contains(lines[1], "unexpected status 503") {
		t.Errorf("unexpected failure line %q", lines[1])
	}
}
