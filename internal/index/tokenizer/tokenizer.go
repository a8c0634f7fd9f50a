// Package tokenizer turns text and user-supplied terms into the lower-cased
// word form that index keys are stored under.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize lower-cases text and splits it on anything that is not a letter
// or a digit.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		tokens = append(tokens, Token{Term: word, Position: pos})
	}
	return tokens
}

// Normalize maps a search term onto its index key form: surrounding
// whitespace is removed and the term is lower-cased. Punctuation is kept, so
// "c++" and "c" stay distinct keys. It returns "" for a blank term.
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// TermFrequencies counts how often each token occurs in text.
func TermFrequencies(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok.Term]++
	}
	return counts
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
