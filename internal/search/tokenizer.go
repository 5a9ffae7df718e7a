package search

import (
	"regexp"
	"strings"
)

// queryStopWords are high-frequency English words excluded from the
// lexical index; they carry no retrieval signal and inflate document
// frequency statistics.
var queryStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true,
	"should": true, "may": true, "might": true, "this": true,
	"that": true, "these": true, "those": true, "it": true,
	"its": true, "from": true, "by": true, "about": true, "as": true,
	"into": true, "through": true,
}

// wordRegex matches tokens: a letter followed by at least one more
// letter or digit, anchored on word boundaries so single characters,
// bare numbers, and digit-led runs like "3abc" are dropped whole.
var wordRegex = regexp.MustCompile(`\b[a-z][a-z0-9]+\b`)

// Tokenize lowercases text and returns stopword-filtered alphanumeric
// tokens of length two or more.
func Tokenize(text string) []string {
	var tokens []string
	for _, tok := range wordRegex.FindAllString(strings.ToLower(text), -1) {
		if !queryStopWords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}
