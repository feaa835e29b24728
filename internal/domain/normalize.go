package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Transformers and casers are stateful, so each call builds its own.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// NormalizeName folds a column name into lower-case ASCII-ish tokens joined
// by underscores: "Unit Price (€)" and "unitPrice" both become "unit_price".
func NormalizeName(name string) string {
	s, _, err := transform.String(stripMarks(), name)
	if err != nil {
		s = name
	}
	return strings.Join(tokens(s), "_")
}

// tokens splits on non-alphanumerics and lower-to-upper camel-case
// boundaries, then case-folds each token.
func tokens(s string) []string {
	fold := cases.Fold()
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, fold.String(string(cur)))
			cur = cur[:0]
		}
	}
	var prev rune
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return out
}

// matchesPattern reports whether the normalized name contains pattern as a
// whole token sequence. Single-token patterns also accept a plural "s".
func matchesPattern(normalized, pattern string) bool {
	p := NormalizeName(pattern)
	if p == "" {
		return false
	}
	if strings.Contains("_"+normalized+"_", "_"+p+"_") {
		return true
	}
	if !strings.Contains(p, "_") {
		for _, tok := range strings.Split(normalized, "_") {
			if tok == p+"s" || tok == p+"es" {
				return true
			}
		}
	}
	return false
}
