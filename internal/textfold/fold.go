// Package textfold normalises free text for matching and key generation.
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks, so "Simón" and "SIMON"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	// Casers carry state and are not safe for concurrent use.
	return cases.Fold().String(out)
}

// Terms splits s into folded words. Punctuation separates words.
func Terms(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Slug returns a lower-case ASCII-ish key fragment joined by hyphens.
func Slug(s string) string {
	terms := Terms(s)
	if len(terms) == 0 {
		return "untitled"
	}
	return strings.Join(terms, "-")
}

// Title capitalises each word of s for display, using Spanish casing rules.
func Title(s string) string {
	return cases.Title(language.Spanish).String(s)
}
