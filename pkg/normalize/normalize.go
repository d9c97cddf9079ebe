// Package normalize canonicalizes free-text product names so that spelling
// variants of the same product ("Leche 1L", "leche 1 l") collapse to one
// lookup key, and renders canonical keys back into display form.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// unitsMap canonicalizes unit tokens. Keys are the accepted spellings,
// values the canonical unit.
var unitsMap = map[string]string{
	"lt": "l",
	"l":  "l",
	"kg": "kg",
	"gr": "g",
	"g":  "g",
	"ml": "ml",
}

// commonWords are grocery nouns that get title-cased in display form.
var commonWords = map[string]struct{}{
	"leche":  {},
	"yerba":  {},
	"arroz":  {},
	"aceite": {},
	"azúcar": {},
	"fideos": {},
	"harina": {},
	"café":   {},
	"te":     {},
	"té":     {},
}

var (
	quantityRe    = regexp.MustCompile(`(\d+)\s*(lt|l|kg|gr|g|ml)\b`)
	punctuationRe = regexp.MustCompile(`[.,;:]+`)
)

// Normalize returns the canonical form of a product name: lowercased,
// whitespace-collapsed, with quantity+unit pairs rewritten as
// "<number> <unit>" and units folded through unitsMap. Trailing punctuation
// runs are stripped. Empty or whitespace-only input yields "".
// Normalize is idempotent.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")

	// "1l", "500ml", "250 gr" -> "1 l", "500 ml", "250 g"
	s = quantityRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := quantityRe.FindStringSubmatch(m)
		return sub[1] + " " + unitsMap[sub[2]]
	})
	s = strings.Join(strings.Fields(s), " ")

	tokens := strings.Split(s, " ")
	for i, t := range tokens {
		if u, ok := unitsMap[t]; ok {
			tokens[i] = u
		}
	}
	s = strings.Join(tokens, " ")

	return punctuationRe.ReplaceAllString(s, "")
}

// Prettify renders a canonical key for display. Unit tokens stay lowercase,
// common grocery words are title-cased, everything else gets its first rune
// uppercased. Single-rune tokens are uppercased outright.
func Prettify(key string) string {
	if key == "" {
		return ""
	}

	tokens := strings.Split(key, " ")
	pretty := make([]string, 0, len(tokens))
	for _, t := range tokens {
		pretty = append(pretty, prettyToken(t))
	}
	return strings.Join(pretty, " ")
}

func prettyToken(t string) string {
	if isUnit(t) {
		return t
	}
	if _, ok := commonWords[t]; ok {
		return capitalize(t)
	}
	if utf8.RuneCountInString(t) == 1 {
		return strings.ToUpper(t)
	}
	r, size := utf8.DecodeRuneInString(t)
	return string(unicode.ToUpper(r)) + t[size:]
}

func isUnit(t string) bool {
	for _, u := range unitsMap {
		if t == u {
			return true
		}
	}
	return false
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(t string) string {
	r, size := utf8.DecodeRuneInString(t)
	return string(unicode.ToUpper(r)) + strings.ToLower(t[size:])
}
