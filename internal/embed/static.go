package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// StaticEmbedder generates embeddings using a hash-based approach.
// Works without external dependencies (no network, no model download).
// Deterministic and fast, with reduced semantic quality compared to a
// real embedding model.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*StaticEmbedder)(nil)

// proseStopWords are common English function words filtered before hashing.
var proseStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true,
	"at": true, "be": true, "but": true, "by": true, "for": true,
	"from": true, "had": true, "has": true, "have": true, "in": true,
	"is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "were": true, "will": true, "with": true,
}

// Weights for vector generation.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// tokenRegex matches alphanumeric sequences.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// NewStaticEmbedder creates a new static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates an embedding for a single text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	return normalizeVector(e.generateVector(trimmed)), nil
}

// generateVector creates a hash-based vector from text. Word tokens
// carry most of the weight; character trigrams add resilience to
// inflection and minor misspellings.
func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, StaticDimensions)

	for _, token := range tokenizeProse(text) {
		index := hashToIndex(token, StaticDimensions)
		vector[index] += tokenWeight
	}

	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		index := hashToIndex(ngram, StaticDimensions)
		vector[index] += ngramWeight
	}

	return vector
}

// tokenizeProse splits text into lowercase word tokens with stop words
// removed.
func tokenizeProse(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		lower := strings.ToLower(word)
		if lower != "" && !proseStopWords[lower] {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// normalizeForNgrams strips everything but letters and digits.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}

	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to a vector index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = emb
	}

	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return "static"
}

// Available checks if the embedder is ready (always, unless closed).
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
