package model

// AudioExtension is the file extension every normalized audio link ends with.
const AudioExtension = ".mp3"

// QuotePair is a single voice line: the audio clip and the quote spoken in it.
// A QuotePair is only ever constructed with both fields set; list items that
// lack either one never produce a pair.
type QuotePair struct {
	// AudioLink is the clip URL, truncated right after ".mp3".
	AudioLink string `json:"audio_link"`

	// Quote is the trimmed quote text with double quote marks removed.
	Quote string `json:"quote"`
}

// PageResult is the ordered list of pairs accepted from one source page.
// Order is the document order of the list items on the page.
type PageResult []QuotePair

// Len returns the number of accepted pairs.
func (r PageResult) Len() int {
	return len(r)
}

// AudioLinks returns the audio link column in page order.
func (r PageResult) AudioLinks() []string {
	links := make([]string, len(r))
	for i, pair := range r {
		links[i] = pair.AudioLink
	}
	return links
}

// Quotes returns the quote column in page order.
func (r PageResult) Quotes() []string {
	quotes := make([]string, len(r))
	for i, pair := range r {
		quotes[i] = pair.Quote
	}
	return quotes
}
