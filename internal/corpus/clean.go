// Package corpus turns raw training text and count files into tokens and
// counts for the vocabulary builders.
package corpus

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// contractions are expanded in this order.
var contractions = []struct{ from, to string }{
	{"n't", " not"},
	{"'re", " are"},
	{"'s", " is"},
	{"'d", " would"},
	{"'ll", " will"},
	{"'ve", " have"},
	{"'m", " am"},
}

var tokenPattern = regexp.MustCompile(`[a-z]+|[.,!?]`)

func lower(s string) string {
	// Casers keep state, so each call gets its own.
	return cases.Lower(language.Und).String(s)
}

// Clean normalizes raw text for tokenization: NFKC, lower-case, contraction
// expansion, then every character outside [a-z0-9 .,!?'] and whitespace
// becomes a space. Runs of whitespace collapse to one space.
func Clean(text string) string {
	s := lower(norm.NFKC.String(text))

	for _, c := range contractions {
		s = strings.ReplaceAll(s, c.from, c.to)
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == '.', r == ',', r == '!', r == '?', r == '\'':
			return r
		default:
			return ' '
		}
	}, s)

	return strings.Join(strings.Fields(s), " ")
}

// Tokenize returns the words and sentence punctuation of text in order.
// Digits and apostrophes separate tokens but are not tokens themselves.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(lower(text), -1)
}
