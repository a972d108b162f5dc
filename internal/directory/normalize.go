package directory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeUsername normalizes a username for storage and comparison
// (trimmed, lowercase, no diacritics). Uniqueness is enforced over the
// normalized form, so "Alice" and "alicé" collide.
func NormalizeUsername(name string) string {
	name = strings.TrimSpace(name)
	name = removeDiacritics(name)
	name = strings.ToLower(name)
	return name
}
