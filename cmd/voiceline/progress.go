package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/nao1215/voiceline/internal/model"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// progress prints one line per finished source.
type progress struct {
	out      io.Writer
	total    int
	colorize bool
}

func newProgress(out io.Writer, total int) *progress {
	return &progress{
		out:      out,
		total:    total,
		colorize: shouldColorize(out),
	}
}

// report is a pipeline.Runner callback.
func (p *progress) report(src *model.SourceReport, index int) {
	fmt.Fprintln(p.out, p.line(src, index))
}

func (p *progress) line(src *model.SourceReport, index int) string {
	tab := src.TabName
	if tab == "" {
		tab = src.URL
	}

	var status, color string
	switch {
	case src.Failed():
		status, color = "FAIL", ansiRed
	case src.Written:
		status, color = "OK", ansiGreen
	default:
		status, color = "SKIP", ansiYellow
	}

	width := len(fmt.Sprint(p.total))
	line := fmt.Sprintf("[%*d/%d] %-4s %-12s %d kept, %d skipped",
		width, index+1, p.total, status, tab, src.Stats.Kept, src.Stats.Skipped())
	if src.Failed() {
		line = fmt.Sprintf("[%*d/%d] %-4s %-12s %s", width, index+1, p.total, status, tab, src.ErrorMessage)
	}

	if p.colorize {
		return color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
