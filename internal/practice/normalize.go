package practice

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize prepares an answer for comparison. Composed and decomposed
// accents compare equal, as do different letter cases.
func Normalize(s string) string {
	return folder.String(norm.NFC.String(strings.TrimSpace(s)))
}

// SameSpelling reports whether answer spells word
func SameSpelling(answer, word string) bool {
	return Normalize(answer) == Normalize(word)
}
