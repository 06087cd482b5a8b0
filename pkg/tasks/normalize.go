package tasks

import (
	"strings"
	"unicode"
)

// Normalizer collapses task content into a comparison key so that
// carry-forward and auto-generation never introduce duplicates of work
// that is already listed. It is a pluggable strategy: the default is tuned
// for matching contractor-annotated entries like "필터 교체 (ABC상사)"
// against "필터교체", and other locales can supply their own.
type Normalizer func(content string) string

// DefaultNormalizer drops parenthesized annotations entirely, strips all
// whitespace and hyphens from the remainder, and uppercases it.
func DefaultNormalizer(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	depth := 0
	for _, r := range content {
		switch {
		case r == '(':
			depth++
			continue
		case r == ')':
			if depth > 0 {
				depth--
			}
			continue
		case depth > 0:
			continue
		case unicode.IsSpace(r) || r == '-':
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
