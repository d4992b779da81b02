package isbn

import (
	"strings"
	"unicode"
)

// Normalize strips hyphens and whitespace from a book identifier.
// Length and checksum are not validated here.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}
