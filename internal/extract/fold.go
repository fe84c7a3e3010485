// Package extract holds pure text-to-value helpers used while normalizing scraped cards.
package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases value and strips combining accents so "Télétravail" and
// "teletravail" compare equal.
func Fold(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(normalizeSpaces(folded))
}

// normalizeSpaces maps the non-breaking spaces French sites put in amounts to plain spaces.
func normalizeSpaces(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u202f', '\u2009':
			return ' '
		}
		return r
	}, value)
}
