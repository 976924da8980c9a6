package extract

// SeenQuotes is the set of quote texts accepted so far in a run.
// One set is shared by every page of a run and is never reset between pages.
// It is not safe for concurrent use.
type SeenQuotes struct {
	quotes map[string]struct{}
}

// NewSeenQuotes creates a set pre-seeded with the given quotes.
func NewSeenQuotes(initial ...string) *SeenQuotes {
	s := &SeenQuotes{quotes: make(map[string]struct{}, len(initial))}
	for _, q := range initial {
		s.quotes[q] = struct{}{}
	}
	return s
}

// Contains reports whether quote was already accepted.
func (s *SeenQuotes) Contains(quote string) bool {
	_, ok := s.quotes[quote]
	return ok
}

// Add records quote and reports whether it was new.
func (s *SeenQuotes) Add(quote string) bool {
	if s.Contains(quote) {
		return false
	}
	s.quotes[quote] = struct{}{}
	return true
}

// Len returns the number of accepted quotes.
func (s *SeenQuotes) Len() int {
	return len(s.quotes)
}
