// Package audiodev selects and configures PortAudio input devices for
// a capture run and provides the selectors shared with MIDI port
// lookup.
package audiodev

import (
	"fmt"
	"strconv"
	"strings"
)

// Matcher selects one item from an enumerated list, either by its
// numeric index or by a case-insensitive substring of its name.
type Matcher struct {
	index     int
	byIndex   bool
	substring string
}

// ParseMatcher builds a matcher from user input. Input that parses as
// a non-negative integer selects by index; anything else selects by
// substring.
func ParseMatcher(s string) Matcher {
	if idx, err := strconv.Atoi(s); err == nil && idx >= 0 {
		return Matcher{index: idx, byIndex: true}
	}
	return Matcher{substring: strings.ToLower(s)}
}

// String renders the matcher the way it was written.
func (m Matcher) String() string {
	if m.byIndex {
		return strconv.Itoa(m.index)
	}
	return m.substring
}

// Pick returns the index of the first of n items the matcher accepts.
// name resolves an index to the item's display name.
func (m Matcher) Pick(n int, name func(int) string) (int, bool) {
	if m.byIndex {
		if m.index < n {
			return m.index, true
		}
		return 0, false
	}
	for i := 0; i < n; i++ {
		if strings.Contains(strings.ToLower(name(i)), m.substring) {
			return i, true
		}
	}
	return 0, false
}

// LookupError reports a matcher that selected nothing.
type LookupError struct {
	What  string
	Query string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no %s matching %q", e.What, e.Query)
}
