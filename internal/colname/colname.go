// Package colname canonicalizes source column headers.
package colname

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var headerReplacer = strings.NewReplacer(" ", "_", "-", "_")

// Normalize maps a raw header label to its canonical key: surrounding
// whitespace is trimmed, the label is NFKD-decomposed and every rune without
// an ASCII form is dropped, spaces and hyphens become underscores, and the
// result is lowercased.
//
//	"Ano "      -> "ano"
//	"Pontuação" -> "pontuacao"
//	"User-ID"   -> "user_id"
//
// A label that folds to nothing yields "".
func Normalize(label string) string {
	s := strings.TrimSpace(label)

	// Decompose, then drop combining marks and anything else outside ASCII.
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	return strings.ToLower(headerReplacer.Replace(ascii))
}
