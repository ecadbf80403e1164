package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into lowercase terms. Accents are folded so "Café"
// and "cafe" yield the same term. Runs of letters and digits form terms;
// everything else separates them.
func Tokenize(text string) []string {
	terms := strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(terms) == 0 {
		return nil
	}
	return terms
}

// Fold lowercases text with Unicode case folding and strips combining marks.
func Fold(text string) string {
	// A transformer holds state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, text)
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}
