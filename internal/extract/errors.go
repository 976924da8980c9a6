package extract

import (
	"errors"
	"fmt"
)

// Per-item outcomes that produce no pair.
var (
	// ErrMissingAudioElement is returned when a list item has no usable audio source.
	ErrMissingAudioElement = errors.New("no audio element")

	// ErrMalformedAudioSource is returned when the audio source lacks the ".mp3"
	// marker. It matches ErrMissingAudioElement with errors.Is.
	ErrMalformedAudioSource = fmt.Errorf("%w: source has no .mp3 marker", ErrMissingAudioElement)

	// ErrEmptyQuoteText is returned when every text segment was filtered out
	// or the remaining quote is empty.
	ErrEmptyQuoteText = errors.New("no quote text")

	// ErrDuplicateQuote is returned when the quote was already accepted earlier in the run.
	ErrDuplicateQuote = errors.New("duplicate quote")
)
