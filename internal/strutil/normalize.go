// SPDX-License-Identifier: AGPL-3.0-or-later

// Package strutil implements the string-utility collaborator consumed by
// the dedup engine: normalization, candidate-key derivation, author
// matching, id collation keys, and classical edit distance.
package strutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper removes Unicode combining marks after NFKD
// decomposition, turning e.g. "Müller" into "muller".
var diacriticStripper = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize case-folds, strips diacritics, and collapses whitespace and
// punctuation runs to single spaces, trimming the result. It is the base
// normalization every other strutil function builds on.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	folded, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastWasSpace := true // swallow leading separators
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteRune(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// leadingArticles are stripped when building a title candidate key; they
// carry no discriminating information for matching.
var leadingArticles = []string{"the ", "a ", "an "}

// TitleKey derives a normalized candidate-generation key from a title.
// It applies Normalize and then strips a single leading article.
func TitleKey(title string) string {
	n := Normalize(title)
	for _, article := range leadingArticles {
		if strings.HasPrefix(n, article) {
			return strings.TrimSpace(strings.TrimPrefix(n, article))
		}
	}
	return n
}

// Truncate255 truncates s to at most 255 runes, the limit the Match
// Predicate's title and author gates apply before computing edit distance.
func Truncate255(s string) string {
	r := []rune(s)
	if len(r) <= 255 {
		return s
	}
	return string(r[:255])
}
