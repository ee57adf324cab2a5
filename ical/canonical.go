package ical

import (
	"bytes"
	"strings"
)

// Canonicalize normalizes an event body for bytewise equality comparison:
// CRLF and LF are collapsed to a single form, trailing blank lines are
// stripped, and blank lines anywhere in the body are dropped (the "collapse
// runs of blank lines" rule from §3). Internal property ordering is left
// untouched.
func Canonicalize(raw []byte) []byte {
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	s = strings.TrimRight(s, "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return []byte(strings.Join(out, "\n"))
}

// Equal reports whether two raw event bodies are equal once canonicalized.
func Equal(a, b []byte) bool {
	return bytes.Equal(Canonicalize(a), Canonicalize(b))
}
