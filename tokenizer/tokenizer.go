// Package tokenizer normalizes text for the content index.
//
// Tokenization is part of the index contract and must stay stable across
// versions: input is lower-cased and split on any rune that is neither a
// Unicode letter nor a digit. There is no stemming and no stop-word removal;
// the normalized term-frequency score depends on raw token counts being
// reproducible.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token is a single normalized term and its position in the input.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lower-cased tokens split on non-alphanumeric
// rune boundaries. It is UTF-8 aware: multi-byte letters and digits are kept
// intact.
func Tokenize(text string) []Token {
	if text == "" {
		return nil
	}
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for i, word := range words {
		tokens = append(tokens, Token{Term: word, Position: i})
	}
	return tokens
}

// Counts returns the term-frequency map of text and the total token count.
func Counts(text string) (map[string]uint32, int) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, 0
	}
	counts := make(map[string]uint32, len(tokens))
	for _, tok := range tokens {
		counts[tok.Term]++
	}
	return counts, len(tokens)
}

// Terms tokenizes a free-text query into its distinct terms, preserving
// first-seen order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}
