// Package segment splits raw document text into clean sentences.
// Sentences are ephemeral: they feed the chunker and the version
// differ but are never persisted themselves.
package segment

import (
	"regexp"
	"strings"
)

// minSentenceLen drops micro-fragments: headers, bullets, stray tokens.
const minSentenceLen = 15

var (
	crlfRe       = regexp.MustCompile(`\r\n`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	paragraphRe  = regexp.MustCompile(`\n\n+`)
	terminalRune = map[rune]bool{'.': true, '!': true, '?': true}
)

// Sentences splits text into an ordered sequence of sentences.
// Line endings and whitespace runs are normalized first; boundaries are
// sentence-ending punctuation followed by a capital letter or quote, or
// paragraph breaks. Fragments of 15 characters or fewer are discarded.
// Empty input yields an empty (nil) slice; Sentences never fails.
func Sentences(text string) []string {
	text = crlfRe.ReplaceAllString(text, "\n")
	text = spaceRunRe.ReplaceAllString(text, " ")

	var sentences []string
	for _, para := range paragraphRe.Split(text, -1) {
		for _, s := range splitParagraph(para) {
			s = strings.TrimSpace(s)
			if len(s) > minSentenceLen {
				sentences = append(sentences, s)
			}
		}
	}
	return sentences
}

// splitParagraph splits one paragraph on sentence-ending punctuation
// followed by whitespace and a capital letter or an opening quote.
func splitParagraph(para string) []string {
	runes := []rune(para)
	var out []string
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if !terminalRune[runes[i]] {
			continue
		}
		// Skip whitespace after the terminator.
		j := i + 1
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if isSentenceStart(runes[j]) {
			out = append(out, string(runes[start:i+1]))
			start = j
			i = j - 1
		}
	}

	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}

func isSentenceStart(r rune) bool {
	return (r >= 'A' && r <= 'Z') || r == '"' || r == '\''
}
