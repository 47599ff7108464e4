package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Pattern matches a valid slug: lowercase kebab-case, no leading, trailing
// or doubled hyphens.
var Pattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into base + combining mark.
var special = strings.NewReplacer("ı", "i", "ß", "ss", "æ", "ae", "ø", "o", "đ", "d", "ł", "l")

// Valid reports whether s is an acceptable slug.
func Valid(s string) bool {
	return Pattern.MatchString(s)
}

// Generate derives a slug from a display name, folding accented letters to
// ASCII: "Kadın Giyim" → "kadin-giyim", "Crème Brûlée!" → "creme-brulee".
func Generate(name string) string {
	s := special.Replace(strings.ToLower(strings.TrimSpace(name)))

	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}
