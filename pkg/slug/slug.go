package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ligatures have no decomposition, so they are expanded by hand.
var ligatures = strings.NewReplacer("œ", "oe", "æ", "ae", "ß", "ss", "&", " et ")

// Generate turns a display name into a URL-friendly key. Diacritics are
// stripped so French names map to plain ASCII.
//
// Examples:
//   - "Soins Visage" → "soins-visage"
//   - "Crème Hydratante Élixir" → "creme-hydratante-elixir"
//   - "Sœur & Frère" → "soeur-et-frere"
func Generate(name string) string {
	s := ligatures.Replace(strings.ToLower(strings.TrimSpace(name)))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
