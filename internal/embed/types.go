// Package embed generates vector embeddings for sentences and chunks.
// Two providers are supported: Ollama over HTTP for real semantic
// embeddings, and a deterministic hash-based static embedder that needs
// no network or model download.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default number of texts per embedding request.
	DefaultBatchSize = 32

	// MaxBatchSize caps batch size to prevent memory exhaustion.
	MaxBatchSize = 256

	// DefaultTimeout is the default timeout for embedding requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultDimensions is the embedding dimension assumed for Ollama
	// models when auto-detection is skipped.
	DefaultDimensions = 768

	// StaticDimensions is the embedding dimension for the static embedder.
	StaticDimensions = 256
)

// Embedder generates vector embeddings for text. All returned vectors
// are unit length, so dot product equals cosine similarity.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
