package sheet

import (
	"fmt"
	"strings"
)

// TabName derives the destination tab name from a source address: the
// second-to-last path segment once surrounding slashes are trimmed.
// "https://site.example/wiki/Jett/Quotes/" gives "Jett".
func TabName(address string) (string, error) {
	segments := strings.Split(strings.Trim(address, "/"), "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidSourceAddress, address)
	}

	name := segments[len(segments)-2]
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidSourceAddress, address)
	}
	return name, nil
}
