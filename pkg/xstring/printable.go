package xstring

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ToPrintable makes a string (a window title, a process name) safe to
// print into a terminal: control and format characters become spaces,
// runs of spaces are collapsed and the result is NFC-normalized.
func ToPrintable(s string) string {
	var b strings.Builder
	lastIsSpace := true
	for _, r := range norm.NFC.String(s) {
		if unicode.IsControl(r) || unicode.In(r, unicode.Cf) || unicode.IsSpace(r) || r == unicode.ReplacementChar {
			if !lastIsSpace {
				b.WriteRune(' ')
				lastIsSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastIsSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// Truncate cuts s to at most maxRunes runes, marking the cut with "…".
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes-1]) + "…"
}
