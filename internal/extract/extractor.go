package extract

import (
	"fmt"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/nao1215/voiceline/internal/crawler"
	"github.com/nao1215/voiceline/internal/model"
)

// Segment prefixes that never hold the quote: stray link text and
// parenthetical annotations such as attributions.
const (
	linkPrefix       = "https"
	annotationPrefix = "("
)

// quoteMark is removed from every segment.
const quoteMark = `"`

// Extractor turns one audio-bearing list item into a QuotePair.
type Extractor struct {
	// seen is the run-wide deduplication scope.
	seen *SeenQuotes
}

// NewExtractor creates an Extractor that deduplicates against seen.
// A nil seen starts a fresh, private scope.
func NewExtractor(seen *SeenQuotes) *Extractor {
	if seen == nil {
		seen = NewSeenQuotes()
	}
	return &Extractor{seen: seen}
}

// Seen returns the deduplication scope used by the extractor.
func (e *Extractor) Seen() *SeenQuotes {
	return e.seen
}

// Extract builds a QuotePair from a list item.
//
// The audio link comes from the first <audio> descendant. The quote is the
// last direct child segment that survives cleaning and is not a link or a
// parenthetical; a leading label segment is therefore overridden by the
// quote that follows it. An accepted quote is added to the run's
// SeenQuotes; a quote already present yields ErrDuplicateQuote.
func (e *Extractor) Extract(item crawler.Node) (model.QuotePair, error) {
	audioLink, audioErr := audioSource(item)
	quote, found := quoteText(item)

	if audioErr != nil {
		return model.QuotePair{}, audioErr
	}
	if !found || quote == "" {
		return model.QuotePair{}, ErrEmptyQuoteText
	}

	if !e.seen.Add(quote) {
		return model.QuotePair{}, fmt.Errorf("%w: %q", ErrDuplicateQuote, quote)
	}

	return model.QuotePair{AudioLink: audioLink, Quote: quote}, nil
}

// audioSource returns the normalized link of the item's first audio element.
// When the element has no src of its own, the first <source> child is used.
func audioSource(item crawler.Node) (string, error) {
	audio, ok := item.Find(crawler.Tag("audio"))
	if !ok {
		return "", ErrMissingAudioElement
	}

	src := audio.Attr("src")
	if src == "" {
		if source, ok := audio.Find(crawler.TagWithAttr("source", "src")); ok {
			src = source.Attr("src")
		}
	}
	if src == "" {
		return "", ErrMissingAudioElement
	}

	return NormalizeAudioLink(src)
}

// NormalizeAudioLink cuts src right after the first ".mp3", dropping the
// query strings and revision suffixes wikis append to file URLs.
func NormalizeAudioLink(src string) (string, error) {
	i := strings.Index(src, model.AudioExtension)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrMalformedAudioSource, src)
	}
	return src[:i] + model.AudioExtension, nil
}

// quoteText selects the quote among the item's direct children.
// found is false when every segment was skipped.
func quoteText(item crawler.Node) (quote string, found bool) {
	for _, child := range item.Children() {
		text := cleanSegment(child.Text())
		if strings.HasPrefix(text, linkPrefix) || strings.HasPrefix(text, annotationPrefix) {
			continue
		}
		quote = text
		found = true
	}

	return strings.ReplaceAll(quote, quoteMark, ""), found
}

// cleanSegment replaces no-break spaces with plain spaces, removes double
// quote marks and trims surrounding whitespace.
func cleanSegment(s string) string {
	normalized, _, err := transform.String(noBreakSpaceToSpace(), s)
	if err != nil {
		normalized = s
	}
	return strings.TrimSpace(strings.ReplaceAll(normalized, quoteMark, ""))
}

// noBreakSpaceToSpace maps U+00A0 to U+0020.
func noBreakSpaceToSpace() transform.Transformer {
	return runes.Map(func(r rune) rune {
		if r == '\u00a0' {
			return ' '
		}
		return r
	})
}
