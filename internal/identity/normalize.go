package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize reduces a raw source string to its canonical lookup key:
// NFKD-decomposed, combining marks dropped, case-folded, and stripped of
// everything that is not a letter or digit. "Sigur Rós" and "SIGUR ROS"
// normalize to the same key.
func Normalize(raw string) string {
	decomposed := norm.NFKD.String(raw)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Slugify renders a raw name as a URL-safe slug: lowercased, diacritics
// folded, non-alphanumeric runs collapsed to single hyphens.
func Slugify(raw string) string {
	decomposed := norm.NFKD.String(raw)
	var b strings.Builder
	b.Grow(len(decomposed))
	lastHyphen := true
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
