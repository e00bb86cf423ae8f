package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldDiacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify canonicalises free text for tolerant matching: diacritics are folded,
// the result is lowercased, whitespace runs become single hyphens, anything
// outside [a-z0-9-] is dropped, and repeated or edge hyphens are trimmed.
// The function is total; empty or fully-stripped input yields "".
func Slugify(value string) string {
	if folded, _, err := transform.String(foldDiacritics, value); err == nil {
		value = folded
	}
	value = strings.ToLower(value)

	var b strings.Builder
	b.Grow(len(value))
	lastHyphen := true
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsSpace(r), r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
