package corpus

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Common English and abstract-boilerplate stop words.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "what": true, "when": true, "where": true, "who": true, "which": true,
	"all": true, "any": true, "both": true, "each": true, "more": true, "most": true,
	"other": true, "some": true, "such": true, "no": true, "nor": true, "not": true,
	"only": true, "than": true, "too": true, "very": true, "can": true, "we": true,
	"our": true, "or": true, "these": true, "those": true, "been": true, "may": true,
	"also": true, "between": true, "into": true, "there": true, "their": true,
	"study": true, "studies": true, "results": true, "methods": true, "background": true,
	"conclusions": true, "conclusion": true, "objective": true,
}

// Normalize applies NFKC normalisation and Unicode case folding.
// A Caser is stateful, so each call gets its own.
func Normalize(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}

// Tokenize splits text into normalised terms, dropping stop words,
// single characters and pure numbers.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len([]rune(f)) < 2 || stopWords[f] || isNumber(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// NormalizeTag canonicalises a subject heading so that case and spacing
// variants of the same heading collapse together.
func NormalizeTag(tag string) string {
	return strings.Join(strings.Fields(Normalize(tag)), " ")
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}
