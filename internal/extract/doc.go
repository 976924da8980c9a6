// Package extract turns parsed quote pages into ordered (audio link, quote)
// pairs.
//
// The Scanner finds every list item that carries an <audio> element and hands
// it to the Extractor. The Extractor normalizes the audio link, picks the
// quote text and consults a SeenQuotes set shared by the whole run, so a
// quote that appears on several character pages is only kept on the first
// page it was found on.
//
// Items that cannot produce a pair are reported through sentinel errors
// (ErrMissingAudioElement, ErrMalformedAudioSource, ErrEmptyQuoteText,
// ErrDuplicateQuote). None of them is fatal: the Scanner counts them and
// moves on.
package extract
