package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer turns prose into lowercase terms for feature hashing. Terms
// shorter than two runes and common English function words are dropped.
type Tokenizer struct {
	skip map[string]bool
}

func NewTokenizer() *Tokenizer {
	skip := make(map[string]bool, len(stopwords))
	for _, w := range stopwords {
		skip[w] = true
	}
	return &Tokenizer{skip: skip}
}

// Tokenize returns the terms of text in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	terms := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 || t.skip[f] {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

var stopwords = []string{
	"a", "about", "after", "all", "also", "an", "and", "any", "are", "as",
	"at", "be", "because", "been", "before", "being", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "each", "for", "from", "had", "has",
	"have", "he", "her", "his", "how", "if", "in", "into", "is", "it",
	"its", "may", "more", "most", "must", "no", "not", "of", "on", "or",
	"other", "our", "over", "she", "should", "so", "some", "such", "than", "that",
	"the", "their", "them", "then", "there", "these", "they", "this", "those", "to",
	"under", "until", "very", "was", "we", "were", "what", "when", "where", "which",
	"while", "who", "why", "will", "with", "would", "you", "your",
}
