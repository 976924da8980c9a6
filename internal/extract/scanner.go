package extract

import (
	"errors"
	"io"
	"log/slog"

	"github.com/nao1215/voiceline/internal/crawler"
	"github.com/nao1215/voiceline/internal/model"
)

// Scanner collects every quote pair on a page.
type Scanner struct {
	extractor *Extractor
	logger    *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithScannerLogger sets the logger that receives per-item skip reasons.
func WithScannerLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScanner creates a Scanner backed by extractor.
// A nil extractor gets a private deduplication scope.
func NewScanner(extractor *Extractor, opts ...ScannerOption) *Scanner {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}

	s := &Scanner{
		extractor: extractor,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks the unordered lists under root that contain audio, and within
// them every list item that contains audio, in document order. Each item is
// offered to the Extractor once even when lists are nested. Pairs are
// returned in page order; items that yield no pair are only counted.
func (s *Scanner) Scan(root crawler.Node) (model.PageResult, model.ScanStats) {
	result := make(model.PageResult, 0)
	var stats model.ScanStats

	hasAudio := crawler.Tag("audio")
	visited := make(map[crawler.Node]struct{})

	for _, list := range root.FindAll(crawler.Tag("ul")) {
		if !list.Contains(hasAudio) {
			continue
		}

		for _, item := range list.FindAll(crawler.Tag("li")) {
			if _, done := visited[item]; done {
				continue
			}
			visited[item] = struct{}{}

			if !item.Contains(hasAudio) {
				continue
			}
			stats.Items++

			pair, err := s.extractor.Extract(item)
			if err != nil {
				s.count(&stats, err)
				s.logger.Debug("skipped list item", "reason", err.Error())
				continue
			}

			stats.Kept++
			result = append(result, pair)
		}
	}

	return result, stats
}

// ScanDocument is Scan applied to a whole parsed page.
func (s *Scanner) ScanDocument(doc *crawler.Document) (model.PageResult, model.ScanStats) {
	return s.Scan(doc.Root())
}

// count tallies a skipped item by cause.
func (s *Scanner) count(stats *model.ScanStats, err error) {
	switch {
	case errors.Is(err, ErrMissingAudioElement):
		stats.MissingAudio++
	case errors.Is(err, ErrEmptyQuoteText):
		stats.EmptyQuote++
	case errors.Is(err, ErrDuplicateQuote):
		stats.Duplicates++
	}
}
